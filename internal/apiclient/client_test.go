package apiclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"memorial-guestbook/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, register func(*gin.Engine)) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestListPosts(t *testing.T) {
	srv := testServer(t, func(r *gin.Engine) {
		r.GET("/api/v1/posts", func(c *gin.Context) {
			assert.Equal(t, "12", c.Query("limit"))
			assert.Equal(t, "24", c.Query("offset"))
			c.JSON(http.StatusOK, gin.H{
				"posts":       []gin.H{{"id": "p1"}, {"id": "p2"}},
				"total_count": 40,
			})
		})
	})

	client := New(srv.URL, "tok-1")
	page, err := client.ListPosts(12, 24)
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
	assert.Equal(t, int64(40), page.TotalCount)
}

func TestFetchAllMedia(t *testing.T) {
	srv := testServer(t, func(r *gin.Engine) {
		r.GET("/api/v1/slideshow/media", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"media": []gin.H{
				{"url": "https://cdn/media/a.jpg", "type": "image", "guest_name": "Jane", "post_id": "p1"},
			}})
		})
	})

	client := New(srv.URL, "tok-1")
	items, err := client.FetchAllMedia()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Jane", items[0].GuestName)
}

func TestCreatePost_SendsMultipart(t *testing.T) {
	srv := testServer(t, func(r *gin.Engine) {
		r.POST("/api/v1/posts", func(c *gin.Context) {
			assert.Equal(t, "Jane", c.PostForm("guest_name"))
			assert.Equal(t, "tok-1", c.PostForm("guest_token"))
			form, err := c.MultipartForm()
			require.NoError(t, err)
			assert.Len(t, form.File["media"], 1)
			c.JSON(http.StatusCreated, gin.H{"id": "p1", "guest_name": "Jane"})
		})
	})

	client := New(srv.URL, "tok-1")
	post, err := client.CreatePost("Jane", "hello", []Upload{{FileName: "a.jpg", Data: []byte("fake")}})
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
}

func TestUpdatePost_SendsGuestToken(t *testing.T) {
	srv := testServer(t, func(r *gin.Engine) {
		r.PATCH("/api/v1/posts/:id", func(c *gin.Context) {
			assert.Equal(t, "tok-1", c.GetHeader("X-Guest-Token"))
			c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "message": "edited"})
		})
	})

	client := New(srv.URL, "tok-1")
	msg := "edited"
	post, err := client.UpdatePost("p1", nil, &msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Message)
}

func TestUpdatePost_MediaListOnlySentWhenSet(t *testing.T) {
	var bodies []map[string]interface{}
	srv := testServer(t, func(r *gin.Engine) {
		r.PATCH("/api/v1/posts/:id", func(c *gin.Context) {
			var body map[string]interface{}
			require.NoError(t, c.ShouldBindJSON(&body))
			bodies = append(bodies, body)
			c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
		})
	})

	client := New(srv.URL, "tok-1")
	msg := "edited"
	_, err := client.UpdatePost("p1", nil, &msg, nil)
	require.NoError(t, err)

	_, err = client.UpdatePost("p1", nil, nil, []entity.MediaItem{
		{URL: "https://cdn/media/a.jpg", Type: entity.MediaTypeImage},
	})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.NotContains(t, bodies[0], "media")
	require.Contains(t, bodies[1], "media")
	items := bodies[1]["media"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "https://cdn/media/a.jpg", items[0].(map[string]interface{})["url"])
}

func TestDeletePost_ForbiddenSurfacesServerMessage(t *testing.T) {
	srv := testServer(t, func(r *gin.Engine) {
		r.DELETE("/api/v1/posts/:id", func(c *gin.Context) {
			c.JSON(http.StatusForbidden, gin.H{"error": "you can only modify your own posts"})
		})
	})

	client := New(srv.URL, "wrong-token")
	err := client.DeletePost("p1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "your own posts")
}
