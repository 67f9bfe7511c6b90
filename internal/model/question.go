package model

// Question is a single catalog entry. The catalog is immutable after load;
// IDs are stable ordinals.
type Question struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}
