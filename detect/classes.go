package detect

import "strconv"

// Labels maps a backend class index to a class name.
type Labels []string

// Name returns the label for idx, or idx in decimal when it is out of range
// or blank.
func (l Labels) Name(idx int) string {
	if idx >= 0 && idx < len(l) && l[idx] != "" {
		return l[idx]
	}
	return strconv.Itoa(idx)
}

// Index returns the class index of name.
func (l Labels) Index(name string) (int, bool) {
	for i, n := range l {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// COCOLabels are the 80 class names of models trained on COCO, in the order
// YOLO checkpoints emit them.
var COCOLabels = Labels{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
