package yolo

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/annotator/annotation"
)

// DatasetFile is the class declaration file of a YOLO directory.
const DatasetFile = "data.yaml"

const datasetHeader = "# This config is for running YOLOv8 training locally.\n"

// Default split paths written when a directory has no data.yaml yet.
const (
	DefaultTrainPath = "/path/to/train/images"
	DefaultValPath   = "/path/to/valid/images"
	DefaultTestPath  = "/path/to/test/images"
)

// Names is the class list of a data.yaml file.
//
// It accepts a YAML sequence, a comma separated string or an id to name
// mapping, and is always written in ascending id order.
type Names []annotation.Class

// UnmarshalYAML decodes any of the three accepted forms.
func (n *Names) UnmarshalYAML(node *yaml.Node) error {
	var out Names
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || strings.TrimSpace(node.Value) == "" {
			break
		}
		for i, name := range strings.Split(node.Value, ",") {
			out = append(out, annotation.Class{ID: i, Name: strings.TrimSpace(name)})
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			var name string
			if err := item.Decode(&name); err != nil {
				return errors.Wrapf(err, "names[%d]", i)
			}
			out = append(out, annotation.Class{ID: i, Name: name})
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			id, err := strconv.Atoi(node.Content[i].Value)
			if err != nil {
				return errors.Wrapf(err, "names key %q", node.Content[i].Value)
			}
			var name string
			if err := node.Content[i+1].Decode(&name); err != nil {
				return errors.Wrapf(err, "names[%d]", id)
			}
			out = append(out, annotation.Class{ID: id, Name: name})
		}
	default:
		return errors.Errorf("unsupported names node at line %d", node.Line)
	}
	*n = out
	return nil
}

// MarshalYAML writes the names ordered by id. Ids 0..n-1 are written as a
// flow sequence and any other id set as an id to name mapping.
func (n Names) MarshalYAML() (any, error) {
	sorted := append(Names(nil), n...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	if sorted.contiguous() {
		node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, c := range sorted {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name})
		}
		return node, nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range sorted {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(c.ID)},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name},
		)
	}
	return node, nil
}

func (n Names) contiguous() bool {
	for i, c := range n {
		if c.ID != i {
			return false
		}
	}
	return true
}

// Dataset is the content of data.yaml.
type Dataset struct {
	Train string `yaml:"train"`
	Val   string `yaml:"val"`
	Test  string `yaml:"test"`
	NC    int    `yaml:"nc"`
	Names Names  `yaml:"names"`
}

// DefaultDataset returns a dataset with placeholder split paths and no classes.
func DefaultDataset() Dataset {
	return Dataset{Train: DefaultTrainPath, Val: DefaultValPath, Test: DefaultTestPath}
}

// Classes returns the names as a class table.
func (d Dataset) Classes() *annotation.ClassTable {
	t := annotation.NewClassTable(nil)
	for _, c := range d.Names {
		t.Set(c.Name, c.ID)
	}
	return t
}

// SetClasses replaces the names with the table, keeping its ids.
func (d *Dataset) SetClasses(t *annotation.ClassTable) {
	d.Names = Names(t.Classes())
	d.NC = len(d.Names)
}

// LoadDataset reads data.yaml from dir.
//
// Arguments:
//   - dir: The annotated directory.
//
// Returns:
//   - Dataset: The parsed file, or DefaultDataset when absent or invalid.
//   - bool: True if the file exists.
//   - error: If the file exists but cannot be read or parsed.
func LoadDataset(dir string) (Dataset, bool, error) {
	path := filepath.Join(dir, DatasetFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultDataset(), false, nil
	}
	if err != nil {
		return DefaultDataset(), true, errors.Wrap(err, "read data.yaml")
	}

	ds := DefaultDataset()
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return DefaultDataset(), true, errors.Wrapf(err, "parse %s", path)
	}
	return ds, true, nil
}

// SaveDataset writes d to dir/data.yaml.
func SaveDataset(dir string, d Dataset) error {
	var buf bytes.Buffer
	buf.WriteString(datasetHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(err, "encode data.yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "encode data.yaml")
	}
	if err := os.WriteFile(filepath.Join(dir, DatasetFile), buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write data.yaml")
	}
	return nil
}
