package coco

import "encoding/json"

// Dataset is the subset of the COCO schema read and written by the handler.
type Dataset struct {
	Info        *Info             `json:"info,omitempty"`
	Licenses    []json.RawMessage `json:"licenses"`
	Images      []Image           `json:"images"`
	Annotations []Annotation      `json:"annotations"`
	Categories  []Category        `json:"categories"`
}

// Info is the dataset description block.
type Info struct {
	Description string `json:"description"`
	URL         string `json:"url"`
	Version     string `json:"version"`
	Year        int    `json:"year"`
	Contributor string `json:"contributor"`
	DateCreated string `json:"date_created"`
}

// Image is one entry of images[].
type Image struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Annotation is one entry of annotations[].
type Annotation struct {
	ID           int          `json:"id"`
	ImageID      int          `json:"image_id"`
	CategoryID   int          `json:"category_id"`
	BBox         []float64    `json:"bbox"`
	Segmentation Segmentation `json:"segmentation"`
	Area         float64      `json:"area"`
	IsCrowd      int          `json:"iscrowd"`
}

// Category is one entry of categories[].
type Category struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

// Segmentation is a list of flat x, y coordinate lists.
//
// Run-length encoded masks are objects rather than arrays. They decode to an
// empty segmentation so the bbox is used instead.
type Segmentation [][]float64

// UnmarshalJSON decodes polygon lists and ignores any other form.
func (s *Segmentation) UnmarshalJSON(data []byte) error {
	var polys [][]float64
	if err := json.Unmarshal(data, &polys); err != nil {
		*s = nil
		return nil
	}
	*s = polys
	return nil
}

// MarshalJSON writes an empty array rather than null.
func (s Segmentation) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([][]float64(s))
}
