package models

import (
	"strconv"
	"time"
)

// PageState is what an oracle inspects: the observable state of the page
// after the last action.
type PageState struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"-"`
}

func formatUnix(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
