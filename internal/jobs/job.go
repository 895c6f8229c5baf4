package jobs

import "fmt"

// Job is a single thumbnail request. ID is an opaque client supplied key used
// for deduplication.
type Job struct {
	ID     string `json:"job_id"`
	Src    string `json:"src"`
	Dst    string `json:"dst"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (j Job) String() string {
	return fmt.Sprintf("%s (%s -> %s, %dx%d)", j.ID, j.Src, j.Dst, j.Width, j.Height)
}
