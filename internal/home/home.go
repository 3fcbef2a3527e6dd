package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the epubedit home directory.
	DefaultDirName = ".epubedit"

	// ProjectsDirName is the subdirectory holding per-book projects.
	ProjectsDirName = "projects"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the epubedit home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.epubedit).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ProjectsPath returns the path to the projects directory.
func (d *Dir) ProjectsPath() string {
	return filepath.Join(d.path, ProjectsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create projects directory (this also creates the parent)
	if err := os.MkdirAll(d.ProjectsPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create projects directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// ProjectDir returns the directory for a single book project.
func (d *Dir) ProjectDir(project string) string {
	return filepath.Join(d.ProjectsPath(), project)
}

// ChaptersDir returns the directory holding a project's chapter files.
func (d *Dir) ChaptersDir(project string) string {
	return filepath.Join(d.ProjectDir(project), "chapters")
}

// ChapterPath returns the path to a chapter's original text.
// Chapter numbers are 1-indexed.
func (d *Dir) ChapterPath(project string, chapterNum int) string {
	return filepath.Join(d.ChaptersDir(project), fmt.Sprintf("%03d.txt", chapterNum))
}

// ResultPath returns the path to a chapter's edit result.
func (d *Dir) ResultPath(project string, chapterNum int) string {
	return filepath.Join(d.ChaptersDir(project), fmt.Sprintf("%03d_result.json", chapterNum))
}

// StatusPath returns the path to a chapter's processing status record.
func (d *Dir) StatusPath(project string, chapterNum int) string {
	return filepath.Join(d.ChaptersDir(project), fmt.Sprintf("%03d_status.json", chapterNum))
}

// MetaPath returns the path to a chapter's metadata (title, source id).
func (d *Dir) MetaPath(project string, chapterNum int) string {
	return filepath.Join(d.ChaptersDir(project), fmt.Sprintf("%03d_meta.json", chapterNum))
}

// EnsureProjectDir creates the chapter directory for a project.
func (d *Dir) EnsureProjectDir(project string) error {
	return os.MkdirAll(d.ChaptersDir(project), 0o755)
}
