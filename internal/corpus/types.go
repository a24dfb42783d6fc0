// Package corpus holds the in-memory index of forum topics and users built
// from parsed pages, the deferred quote-author resolution pass, and the
// snapshot format the index round-trips through.
package corpus

// Topic is one discussion thread. Posts are appended as pages are merged and
// must be put in (page, id) order with SortPosts before ordered reads.
type Topic struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	URL              string `json:"url"`
	OriginalPosterID *int64 `json:"op"`
	Posts            []Post `json:"posts"`
}

// User is identified by the numeric id of their profile link, never by name.
type User struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	URL       string   `json:"url"`
	AvatarURL string   `json:"avatar"`
	Messages  []string `json:"messages"`
}

type Post struct {
	ID        int64    `json:"id"`
	TopicID   int64    `json:"topic"`
	AuthorID  int64    `json:"author"`
	Page      int      `json:"page"`
	Message   string   `json:"message"`
	Timestamp int64    `json:"date"` // Unix milliseconds
	Quotes    []Quote  `json:"quotes"`
	Smileys   []string `json:"smileys"`
}

// Quote is attributed by display name at parse time. AuthorID is filled by
// ResolveQuotes once every user of the corpus is known.
type Quote struct {
	AuthorName string `json:"authorName"`
	AuthorID   *int64 `json:"author"`
	Message    string `json:"message"`
}

// Page is the result of extracting one raw page, before it is merged.
type Page struct {
	TopicID int64
	Number  int
	Title   string
	URL     string
	Posts   []PagePost
}

// PagePost pairs a post with the author as seen on that page.
type PagePost struct {
	Post   Post
	Author User
}
