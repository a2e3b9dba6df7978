package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"memorial-guestbook/internal/apiclient"
	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/feed"
	"memorial-guestbook/internal/guest"
	"memorial-guestbook/internal/media"
	"memorial-guestbook/internal/slideshow"
	"memorial-guestbook/pkg/cache"
	"memorial-guestbook/pkg/logger"

	"golang.org/x/term"
)

// The kiosk runs on a dedicated display at the venue, in one of four
// modes. "slideshow" (the default) cycles through all visible media:
// arrow keys navigate, space advances, p pauses, f toggles fullscreen,
// v marks the current video as finished, q or Esc quits. "wall" pages
// through the tribute feed: space loads more, r refreshes, q quits.
// "submit" posts a tribute from the command line, processing any media
// files before upload. "edit" changes a tribute this device created.
func main() {
	var (
		serverURL  = flag.String("server", "http://localhost:8080", "guestbook server URL")
		stateDir   = flag.String("state-dir", defaultStateDir(), "directory for the device token and offline cache")
		mode       = flag.String("mode", "slideshow", "kiosk mode (slideshow, wall, submit or edit)")
		name       = flag.String("name", "", "guest name (submit and edit modes)")
		message    = flag.String("message", "", "tribute text (submit and edit modes)")
		postID     = flag.String("post", "", "post to change (edit mode)")
		clearMedia = flag.Bool("clear-media", false, "remove the post's media (edit mode)")
	)
	flag.Parse()

	log := logger.New()

	tokenStore := guest.NewStore(*stateDir)
	token := tokenStore.Token()
	if token == "" {
		log.Warn("State directory %s is unusable, running without a device identity", *stateDir)
	}

	client := apiclient.New(*serverURL, token)

	var offlineCache *cache.Cache
	if storage, err := cache.NewFileStorage(filepath.Join(*stateDir, "cache")); err != nil {
		log.Warn("Offline cache disabled: %v", err)
	} else {
		offlineCache = cache.New(storage)
	}

	switch *mode {
	case "slideshow":
		runSlideshow(client, offlineCache, log)
	case "wall":
		runWall(client, offlineCache, log)
	case "submit":
		runSubmit(client, offlineCache, log, *name, *message, flag.Args())
	case "edit":
		runEdit(client, offlineCache, log, *postID, *name, *message, *clearMedia)
	default:
		log.Error("Unknown mode %q", *mode)
		os.Exit(2)
	}
}

// runSubmit processes the given media files locally and posts the
// tribute. Oversized source files are rejected before any decoding.
func runSubmit(client *apiclient.Client, offlineCache *cache.Cache, log *logger.Logger, name, message string, files []string) {
	if name == "" {
		log.Error("-name is required in submit mode")
		os.Exit(2)
	}
	if message == "" && len(files) == 0 {
		log.Error("A -message or at least one media file is required")
		os.Exit(2)
	}

	var uploads []apiclient.Upload
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			log.Error("Cannot read %s: %v", path, err)
			os.Exit(1)
		}
		if info.Size() > media.MaxUploadBytes {
			log.Error("%s is larger than %dMB, refusing to process it", path, media.MaxUploadMB)
			os.Exit(1)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Cannot read %s: %v", path, err)
			os.Exit(1)
		}

		processed, mediaType, err := media.Process(media.File{Name: filepath.Base(path), Data: data})
		if err != nil {
			log.Error("Cannot process %s: %v", path, err)
			os.Exit(1)
		}
		log.Info("Prepared %s (%s, %d bytes)", processed.Name, mediaType, len(processed.Data))

		uploads = append(uploads, apiclient.Upload{FileName: processed.Name, Data: processed.Data})
	}

	post, err := client.CreatePost(name, message, uploads)
	if err != nil {
		log.Error("Failed to submit tribute: %v", err)
		os.Exit(1)
	}

	// The wall and the slideshow changed; drop their cached copies so
	// the next load refetches.
	if offlineCache != nil {
		offlineCache.Clear(cache.KeyPostFeed)
		offlineCache.Clear(cache.KeySlideshowMedia)
	}

	log.Info("Tribute %s posted as %s", post.ID, name)
}

// runEdit updates a tribute. The server only honors it when the device
// token matches the one the post was created with.
func runEdit(client *apiclient.Client, offlineCache *cache.Cache, log *logger.Logger, postID, name, message string, clearMedia bool) {
	if postID == "" {
		log.Error("-post is required in edit mode")
		os.Exit(2)
	}
	if name == "" && message == "" && !clearMedia {
		log.Error("Nothing to change: give -name, -message or -clear-media")
		os.Exit(2)
	}

	var namePtr, messagePtr *string
	if name != "" {
		namePtr = &name
	}
	if message != "" {
		messagePtr = &message
	}
	var media []entity.MediaItem
	if clearMedia {
		media = []entity.MediaItem{}
	}

	post, err := client.UpdatePost(postID, namePtr, messagePtr, media)
	if err != nil {
		log.Error("Failed to edit tribute: %v", err)
		os.Exit(1)
	}

	// Cached copies of the wall and the slideshow are stale now.
	if offlineCache != nil {
		offlineCache.Clear(cache.KeyPostFeed)
		offlineCache.Clear(cache.KeySlideshowMedia)
	}

	log.Info("Tribute %s updated", post.ID)
}

func runSlideshow(client *apiclient.Client, offlineCache *cache.Cache, log *logger.Logger) {
	show := slideshow.New(client, terminalFullscreen{}, offlineCache, slideshow.Config{})
	show.OnChange(func() { renderSlideshow(show) })

	if err := show.Start(); err != nil {
		log.Error("Failed to start slideshow: %v", err)
		os.Exit(1)
	}
	defer show.Close()

	renderSlideshow(show)

	restore, err := rawMode()
	if err != nil {
		log.Error("Failed to switch terminal to raw mode: %v", err)
		os.Exit(1)
	}
	defer restore()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go readSlideshowKeys(show, done)

	select {
	case <-done:
	case <-quit:
	}
}

func runWall(client *apiclient.Client, offlineCache *cache.Cache, log *logger.Logger) {
	wall := feed.NewController(client, offlineCache)
	if err := wall.Load(); err != nil {
		log.Error("Failed to load the wall: %v", err)
		os.Exit(1)
	}
	renderWall(wall)

	restore, err := rawMode()
	if err != nil {
		log.Error("Failed to switch terminal to raw mode: %v", err)
		os.Exit(1)
	}
	defer restore()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n != 1 {
			continue
		}

		switch buf[0] {
		case ' ':
			if err := wall.LoadMore(); err != nil {
				log.Warn("Failed to load more posts: %v", err)
				continue
			}
			renderWall(wall)
		case 'r', 'R':
			if err := wall.Refresh(); err != nil {
				log.Warn("Failed to refresh the wall: %v", err)
				continue
			}
			renderWall(wall)
		case 'q', 'Q', 3:
			return
		}
	}
}

func rawMode() (func(), error) {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(int(os.Stdin.Fd()), oldState) }, nil
}

// readSlideshowKeys translates raw terminal input into slideshow
// events. Arrow keys arrive as three-byte escape sequences.
func readSlideshowKeys(show *slideshow.Controller, done chan<- struct{}) {
	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			close(done)
			return
		}

		switch {
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'C':
			show.HandleKey(slideshow.KeyNext)
		case n == 3 && buf[0] == 0x1b && buf[1] == '[' && buf[2] == 'D':
			show.HandleKey(slideshow.KeyPrevious)
		case n == 1 && buf[0] == 0x1b:
			show.HandleKey(slideshow.KeyEscape)
		case n == 1 && buf[0] == ' ':
			show.HandleKey(slideshow.KeyNext)
		case n == 1 && (buf[0] == 'p' || buf[0] == 'P'):
			show.HandleKey(slideshow.KeyPause)
		case n == 1 && (buf[0] == 'f' || buf[0] == 'F'):
			show.HandleKey(slideshow.KeyFullscreen)
		case n == 1 && (buf[0] == 'v' || buf[0] == 'V'):
			// Stand-in for the player's end-of-video signal.
			show.VideoEnded()
		case n == 1 && (buf[0] == 'q' || buf[0] == 'Q' || buf[0] == 3):
			close(done)
			return
		default:
			show.HandleKey(slideshow.KeyNone)
		}
	}
}

func renderSlideshow(show *slideshow.Controller) {
	// \r because the terminal may be in raw mode.
	if show.Empty() {
		fmt.Print("\r\033[2K  No tributes with media yet\r\n")
		return
	}

	current, ok := show.Current()
	if !ok {
		return
	}

	marker := ""
	if show.Paused() {
		marker = "  [paused]"
	}
	if show.ControlsVisible() {
		marker += "  [<- prev | next -> | p pause | f fullscreen | q quit]"
	}
	fmt.Printf("\r\033[2K  [%d/%d] %s by %s%s",
		show.Index()+1, show.Len(), current.Type, current.GuestName, marker)
}

func renderWall(wall *feed.Controller) {
	posts, total := wall.Snapshot()
	fmt.Printf("\r\033[2K  Tribute wall: %d of %d posts loaded\r\n", len(posts), total)
	for _, post := range posts {
		pin := "  "
		if post.IsPinned {
			pin = "* "
		}
		fmt.Printf("\r\033[2K  %s%s: %s (%d media)\r\n", pin, post.GuestName, post.Message, len(post.Media))
	}
	if wall.HasMore() {
		fmt.Print("\r\033[2K  [space: more | r: refresh | q: quit]\r\n")
	} else {
		fmt.Print("\r\033[2K  [end of wall | r: refresh | q: quit]\r\n")
	}
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memorial-kiosk"
	}
	return filepath.Join(home, ".memorial-kiosk")
}

// terminalFullscreen switches the terminal to the alternate screen,
// which is as close to fullscreen as a text kiosk gets.
type terminalFullscreen struct{}

func (terminalFullscreen) Enter() error {
	fmt.Print("\033[?1049h\033[2J\033[H")
	return nil
}

func (terminalFullscreen) Exit() error {
	fmt.Print("\033[?1049l")
	return nil
}
