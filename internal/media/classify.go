package media

import (
	"net/http"
	"strings"
)

// Kind is the closed classification of a user-selected file. Callers
// switch exhaustively on it instead of sniffing strings at every site.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// Classify decides what a file is from its content sniff, falling back
// to the extension for HEIC/HEIF, which often arrives with no useful
// MIME type at all.
func Classify(name string, data []byte) Kind {
	contentType := http.DetectContentType(sniffSlice(data))
	if strings.HasPrefix(contentType, "image/") {
		return KindImage
	}
	if strings.HasPrefix(contentType, "video/") {
		return KindVideo
	}
	if isHEICName(name) || isHEICBrand(data) {
		return KindImage
	}
	// MP4-family files sniff as application/octet-stream more often
	// than not; trust the extension for the common containers.
	switch strings.ToLower(ext(name)) {
	case ".mp4", ".mov", ".m4v", ".webm", ".avi":
		return KindVideo
	}
	return KindUnsupported
}

func isHEICName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".heic") || strings.HasSuffix(lower, ".heif")
}

// isHEICBrand checks the ISO-BMFF ftyp box for a HEIF brand.
func isHEICBrand(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}

func sniffSlice(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}

func ext(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return name[idx:]
}
