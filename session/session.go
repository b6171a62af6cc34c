// Package session - The editing model behind an annotation window: one directory, one open image and its undo history.
package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nvr-ai/annotator/annotation"
	"github.com/nvr-ai/annotator/config"
	"github.com/nvr-ai/annotator/detect"
	"github.com/nvr-ai/annotator/formats"
	"github.com/nvr-ai/annotator/formats/format"
	"github.com/nvr-ai/annotator/history"
	"github.com/nvr-ai/annotator/images"
	"github.com/nvr-ai/annotator/logging"
	"github.com/nvr-ai/annotator/util"
)

var (
	// ErrNoDirectory is returned by operations that need an open directory.
	ErrNoDirectory = errors.New("no directory open")
	// ErrNoImage is returned by operations that need an open image.
	ErrNoImage = errors.New("no image open")
	// ErrShapeNotFound is returned when a shape is not part of the open image.
	ErrShapeNotFound = errors.New("shape not in the open image")
)

// Options are the arguments for creating a session.
type Options struct {
	// Config holds the user settings. Nil uses config.DefaultConfig.
	Config *config.AppConfig
	// Logger receives session, handler and history records. Nil discards.
	Logger *slog.Logger
	// Sizes probes image dimensions. Nil uses a SizeCache over image headers.
	Sizes images.SizeProber
}

// Session holds the state of one annotation window.
//
// A session has at most one directory and one image open. Every edit goes
// through the history manager so it can be undone; opening another image
// clears the history.
type Session struct {
	cfg    config.AppConfig
	logger *slog.Logger
	sizes  images.SizeProber

	dir     string
	handler format.Format

	imagePath string
	size      images.Size
	shapes    *annotation.Set
	history   *history.Manager
	dirty     bool
}

// New creates a session with no directory open.
//
// Arguments:
//   - opts: The session options.
//
// Returns:
//   - *Session: The session.
//   - error: If the size cache cannot be created.
//
// @example
// s, err := New(Options{Config: &cfg, Logger: logger})
// err = s.Open("/data/set")
// err = s.OpenImage("img1.jpg")
func New(opts Options) (*Session, error) {
	cfg := config.DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	cfg.Validate()

	sizes := opts.Sizes
	if sizes == nil {
		cache, err := images.NewSizeCache(0, nil)
		if err != nil {
			return nil, err
		}
		sizes = cache
	}

	logger := logging.OrDiscard(opts.Logger)
	return &Session{
		cfg:     cfg,
		logger:  logger.With("component", "session"),
		sizes:   sizes,
		shapes:  annotation.NewSet(),
		history: history.NewManager(cfg.MaxHistoryEntries, logger),
	}, nil
}

// Config returns the settings in use.
func (s *Session) Config() config.AppConfig { return s.cfg }

// SetAutosave toggles writing the image after every change.
func (s *Session) SetAutosave(on bool) { s.cfg.Autosave = on }

// Dir returns the open directory, or "".
func (s *Session) Dir() string { return s.dir }

// Format returns the name of the active format, or "" when no directory is open.
func (s *Session) Format() format.Name {
	if s.handler == nil {
		return ""
	}
	return s.handler.Name()
}

// Handler returns the active format handler, or nil.
func (s *Session) Handler() format.Format { return s.handler }

// Classes returns the class table of the active format, or nil.
func (s *Session) Classes() *annotation.ClassTable {
	if s.handler == nil {
		return nil
	}
	return s.handler.Classes()
}

// History returns the undo manager of the open image.
func (s *Session) History() *history.Manager { return s.history }

// Open switches the session to dir.
//
// The format is detected when AutoDetectFormat is set and otherwise taken
// from DefaultAnnotationFormat. Any open image is closed without saving.
func (s *Session) Open(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "open directory %s", dir)
	}
	if !info.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}

	name := s.cfg.DefaultAnnotationFormat
	if s.cfg.AutoDetectFormat {
		name = formats.Detect(dir, s.logger)
	}

	s.closeImage()
	s.dir = dir
	if err := s.SetFormat(name); err != nil {
		return err
	}
	s.cfg.AddRecentPath(dir)
	s.logger.Info("directory opened", "dir", dir, "format", string(name), "images", len(s.Images()))
	return nil
}

// SetFormat replaces the active format handler and loads its class table from
// the open directory. An open image is re-read through the new handler, which
// discards unsaved edits and the history.
func (s *Session) SetFormat(name format.Name) error {
	if s.dir == "" {
		return ErrNoDirectory
	}
	h, err := formats.NewFormat(name, format.Options{Logger: s.logger, Sizes: s.sizes})
	if err != nil {
		return err
	}
	h.SetClasses(h.ClassesFromDirectory(s.dir))
	s.handler = h

	if s.imagePath != "" {
		return s.OpenImage(s.imagePath)
	}
	return nil
}

// Images returns the sorted image names of the open directory.
func (s *Session) Images() []string {
	if s.dir == "" {
		return nil
	}
	return util.ListImageFiles(s.dir)
}

// ImagePath returns the path of the open image, or "".
func (s *Session) ImagePath() string { return s.imagePath }

// ImageSize returns the dimensions of the open image.
func (s *Session) ImageSize() images.Size { return s.size }

// OpenImage makes path the current image and reads its shapes.
//
// A relative path is resolved against the open directory. The history is
// cleared and the session is clean afterwards.
func (s *Session) OpenImage(path string) error {
	if s.handler == nil {
		return ErrNoDirectory
	}
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(s.dir, path)
	}

	size, err := s.sizes.Size(path)
	if err != nil {
		return errors.Wrapf(err, "open image %s", path)
	}
	shapes, err := s.handler.ReadImage(path, size.Width, size.Height)
	if err != nil {
		return err
	}

	s.imagePath = path
	s.size = size
	s.shapes.Replace(shapes)
	s.history.Clear()
	s.dirty = false
	s.logger.Debug("image opened", "image", path, "shapes", len(shapes))
	return nil
}

func (s *Session) closeImage() {
	s.imagePath = ""
	s.size = images.Size{}
	s.shapes.Clear()
	s.history.Clear()
	s.dirty = false
}

// Shapes returns the live shapes of the open image. Mutate them only through
// the session so the edits are recorded.
func (s *Session) Shapes() []*annotation.Shape { return s.shapes.Shapes() }

// Dirty reports whether the open image has unsaved changes.
func (s *Session) Dirty() bool { return s.dirty }

// Save writes the open image and registers its labels in the class table.
//
// Formats with a separate class file get it rewritten as well. The session is
// clean after a successful save.
func (s *Session) Save() error {
	if s.imagePath == "" {
		return ErrNoImage
	}

	classes := s.handler.Classes()
	added := 0
	for _, label := range s.shapes.Labels() {
		if _, ok := classes.Add(label); ok {
			added++
		}
	}

	if err := s.handler.WriteImage(s.imagePath, s.shapes.Snapshot(), s.size.Width, s.size.Height); err != nil {
		return err
	}
	if cs, ok := s.handler.(format.ClassSaver); ok && classes.Len() > 0 {
		if err := cs.SaveClasses(s.dir, classes); err != nil {
			return err
		}
	}

	s.dirty = false
	s.logger.Info("image saved", "image", s.imagePath, "shapes", s.shapes.Len(), "new_classes", added)
	return nil
}

func (s *Session) changed() {
	s.dirty = true
	if !s.cfg.Autosave {
		return
	}
	if err := s.Save(); err != nil {
		s.logger.Error("autosave failed", "image", s.imagePath, "error", err)
	}
}

// RunDetector adds the shapes found by d in the open image as one undo step.
//
// Returns:
//   - int: The number of shapes added.
//   - error: If no image is open or the detector fails.
func (s *Session) RunDetector(ctx context.Context, d detect.Detector) (int, error) {
	if s.imagePath == "" {
		return 0, ErrNoImage
	}
	found, err := d.Detect(ctx, s.imagePath)
	if err != nil {
		return 0, err
	}
	if len(found) == 0 {
		return 0, nil
	}

	cmds := make([]history.Command, len(found))
	for i, shape := range found {
		cmds[i] = history.NewAddShape(s.shapes, shape, nil)
	}
	s.execute(history.NewGroup("Detect Objects", cmds, nil))
	return len(found), nil
}
