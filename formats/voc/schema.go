package voc

import "encoding/xml"

// Document is the root <annotation> element of a VOC file.
type Document struct {
	XMLName   xml.Name `xml:"annotation"`
	Folder    string   `xml:"folder"`
	Filename  string   `xml:"filename"`
	Path      string   `xml:"path"`
	Source    Source   `xml:"source"`
	Size      Size     `xml:"size"`
	Segmented int      `xml:"segmented"`
	Objects   []Object `xml:"object"`
}

// Source names the originating database.
type Source struct {
	Database string `xml:"database"`
}

// Size is the image size element. Depth is always 3 on write.
type Size struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// Object is one labelled box.
type Object struct {
	Name      string  `xml:"name"`
	Pose      string  `xml:"pose"`
	Truncated int     `xml:"truncated"`
	Difficult int     `xml:"difficult"`
	BndBox    *BndBox `xml:"bndbox"`
}

// BndBox holds the box extrema as text so that both integer and decimal values
// written by other tools can be read.
type BndBox struct {
	XMin string `xml:"xmin"`
	YMin string `xml:"ymin"`
	XMax string `xml:"xmax"`
	YMax string `xml:"ymax"`
}
