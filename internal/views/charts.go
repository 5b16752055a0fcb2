package views

type Series struct {
	Name   string    `json:"name,omitempty"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Chart covers bar, donut and line charts.
type Chart struct {
	Kind      string   `json:"kind"`
	Title     string   `json:"title"`
	XAxis     string   `json:"x_axis,omitempty"`
	YAxis     string   `json:"y_axis,omitempty"`
	Series    []Series `json:"series"`
	Simulated bool     `json:"simulated,omitempty"`
}

type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type Histogram struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	XAxis string `json:"x_axis"`
	YAxis string `json:"y_axis"`
	Bins  []Bin  `json:"bins"`
}

type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
	Size  float64 `json:"size,omitempty"`
	Color string  `json:"color,omitempty"`
	Value float64 `json:"value,omitempty"`
}

type PointGroup struct {
	Name   string  `json:"name,omitempty"`
	Color  string  `json:"color,omitempty"`
	Points []Point `json:"points"`
}

type Scatter struct {
	Kind      string       `json:"kind"`
	Title     string       `json:"title"`
	XAxis     string       `json:"x_axis,omitempty"`
	YAxis     string       `json:"y_axis,omitempty"`
	Groups    []PointGroup `json:"groups"`
	Simulated bool         `json:"simulated,omitempty"`
}

type RatedPlace struct {
	Name     string  `json:"name"`
	Rating   float64 `json:"rating"`
	Category string  `json:"category"`
}

var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
}

func colorAt(i int) string {
	return palette[i%len(palette)]
}

func title(subject, locality string) string {
	if locality == "" {
		return subject
	}
	return subject + " in " + locality
}
