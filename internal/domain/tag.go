package domain

// Tag is a colored label drawn from the seeded vocabulary. (Name, Kind) is
// unique; colors are 6-hex-digit codes without the leading '#'.
type Tag struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	BgColor   string `json:"bg_color"`
	TextColor string `json:"text_color"`
}
