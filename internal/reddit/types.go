package reddit

import (
	"encoding/json"
	"strings"
	"time"
)

// Post is one submission as returned by a subreddit listing, with the
// wire envelope already peeled off and id prefixes stripped.
type Post struct {
	ID          string
	Subreddit   string
	Title       string
	Body        string
	URL         string
	Author      string
	Flair       string
	Score       int
	NumComments int
	UpvoteRatio float64
	TotalAwards int
	Permalink   string
	CreatedUTC  time.Time
}

// Comment is one comment from a submission tree. ParentID is empty for
// top-level comments, whose parent is the submission itself.
type Comment struct {
	ID         string
	PostID     string
	ParentID   string
	Body       string
	Author     string
	Score      int
	Depth      int
	CreatedUTC time.Time
}

// thing is the kind/data envelope Reddit wraps every payload in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

type postData struct {
	ID            string  `json:"id"`
	Subreddit     string  `json:"subreddit"`
	Title         string  `json:"title"`
	SelfText      string  `json:"selftext"`
	URL           string  `json:"url"`
	Author        string  `json:"author"`
	LinkFlairText string  `json:"link_flair_text"`
	Score         int     `json:"score"`
	NumComments   int     `json:"num_comments"`
	UpvoteRatio   float64 `json:"upvote_ratio"`
	TotalAwards   int     `json:"total_awards_received"`
	Permalink     string  `json:"permalink"`
	CreatedUTC    float64 `json:"created_utc"`
}

// commentData carries replies as a RawMessage: Reddit sends an empty
// string there when a comment has none, and a nested listing otherwise.
type commentData struct {
	ID         string          `json:"id"`
	LinkID     string          `json:"link_id"`
	ParentID   string          `json:"parent_id"`
	Body       string          `json:"body"`
	Author     string          `json:"author"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Replies    json.RawMessage `json:"replies"`
}

func (p *postData) toPost() Post {
	return Post{
		ID:          p.ID,
		Subreddit:   p.Subreddit,
		Title:       p.Title,
		Body:        p.SelfText,
		URL:         p.URL,
		Author:      p.Author,
		Flair:       p.LinkFlairText,
		Score:       p.Score,
		NumComments: p.NumComments,
		UpvoteRatio: p.UpvoteRatio,
		TotalAwards: p.TotalAwards,
		Permalink:   p.Permalink,
		CreatedUTC:  time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}
}

func (c *commentData) toComment(depth int) Comment {
	parent := ""
	if strings.HasPrefix(c.ParentID, "t1_") {
		parent = strings.TrimPrefix(c.ParentID, "t1_")
	}
	return Comment{
		ID:         c.ID,
		PostID:     strings.TrimPrefix(c.LinkID, "t3_"),
		ParentID:   parent,
		Body:       c.Body,
		Author:     c.Author,
		Score:      c.Score,
		Depth:      depth,
		CreatedUTC: time.Unix(int64(c.CreatedUTC), 0).UTC(),
	}
}

// repliesListing decodes the replies field of a comment, returning nil
// when the field is absent or the empty-string placeholder.
func repliesListing(raw json.RawMessage) *listingData {
	if len(raw) == 0 || string(raw) == `""` || string(raw) == "null" {
		return nil
	}
	var t thing
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil
	}
	var listing listingData
	if err := json.Unmarshal(t.Data, &listing); err != nil {
		return nil
	}
	return &listing
}
