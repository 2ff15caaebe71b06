// Package registry persists the application registry: the set of known
// projects and references plus the username, stored as a single JSON
// document guarded by a file lock.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/FocuswithJustin/JuniperScribe/core/errors"
	"github.com/FocuswithJustin/JuniperScribe/internal/logging"
)

// FileName is the on-disk name of the registry document.
const FileName = "appInfo.json"

// Reference type tags. A reference carries "Audio" in addition to
// "Bible" when it ships verse recordings.
const (
	TypeBible = "Bible"
	TypeAudio = "Audio"
)

// Project is one registered unit of work.
type Project struct {
	ProjectName       string `json:"projectName"`
	ProjectPath       string `json:"projectPath"`
	ReferenceResource string `json:"referenceResource,omitempty"`
}

// Reference is one registered reference resource.
type Reference struct {
	ReferenceName string   `json:"referenceName"`
	ReferencePath string   `json:"referencePath"`
	ReferenceType []string `json:"referenceType"`
}

// Registry is the full persisted document.
type Registry struct {
	Username   string      `json:"username"`
	Projects   []Project   `json:"projects"`
	References []Reference `json:"references"`
}

// FindProject returns the project with the given name.
func (r *Registry) FindProject(name string) (*Project, bool) {
	for i := range r.Projects {
		if r.Projects[i].ProjectName == name {
			return &r.Projects[i], true
		}
	}
	return nil, false
}

// FindReference returns the reference with the given name.
func (r *Registry) FindReference(name string) (*Reference, bool) {
	for i := range r.References {
		if r.References[i].ReferenceName == name {
			return &r.References[i], true
		}
	}
	return nil, false
}

// Store reads and mutates the registry document. All mutations run a
// locked read-modify-write cycle so two processes cannot interleave.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore creates a store rooted at baseDir. The document and its
// lock file live directly under baseDir.
func NewStore(baseDir string) *Store {
	path := filepath.Join(baseDir, FileName)
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Load reads the current registry. A missing document yields an empty
// registry, not an error.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &Registry{}, nil
	}
	if err != nil {
		return nil, errors.NewIO("read", s.path, err)
	}
	reg := &Registry{}
	if err := json.Unmarshal(data, reg); err != nil {
		return nil, errors.NewParse("registry", s.path, err.Error())
	}
	return reg, nil
}

// update runs fn against the current registry under the file lock and
// persists the result atomically.
func (s *Store) update(fn func(*Registry) error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.NewIO("mkdir", filepath.Dir(s.path), err)
	}
	if err := s.lock.Lock(); err != nil {
		return errors.NewIO("lock", s.lock.Path(), err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			logging.Warn("failed to release registry lock", "path", s.lock.Path(), "error", err)
		}
	}()

	reg, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(reg); err != nil {
		return err
	}
	return s.save(reg)
}

func (s *Store) save(reg *Registry) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.NewIO("write", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.NewIO("rename", s.path, err)
	}
	return nil
}

// SetUsername records the username.
func (s *Store) SetUsername(name string) error {
	if name == "" {
		return errors.NewValidation("username", "must not be empty")
	}
	return s.update(func(reg *Registry) error {
		reg.Username = name
		return nil
	})
}

// AddProject registers a project. Duplicate names are rejected.
func (s *Store) AddProject(p Project) error {
	if p.ProjectName == "" {
		return errors.NewValidation("projectName", "must not be empty")
	}
	if p.ProjectPath == "" {
		return errors.NewValidation("projectPath", "must not be empty")
	}
	return s.update(func(reg *Registry) error {
		if _, ok := reg.FindProject(p.ProjectName); ok {
			return errors.Wrapf(errors.ErrAlreadyExists, "project %q", p.ProjectName)
		}
		reg.Projects = append(reg.Projects, p)
		return nil
	})
}

// RemoveProject unregisters a project and deletes its tree on disk.
func (s *Store) RemoveProject(name string) error {
	return s.update(func(reg *Registry) error {
		for i := range reg.Projects {
			if reg.Projects[i].ProjectName != name {
				continue
			}
			rootPath := reg.Projects[i].ProjectPath
			reg.Projects = append(reg.Projects[:i], reg.Projects[i+1:]...)
			if rootPath != "" {
				if err := os.RemoveAll(rootPath); err != nil {
					return errors.NewIO("remove", rootPath, err)
				}
			}
			return nil
		}
		return errors.NewNotFound("project", name)
	})
}

// AddReference registers a reference. Duplicate names are rejected and
// the type list must be a subset of {Bible, Audio}.
func (s *Store) AddReference(r Reference) error {
	if r.ReferenceName == "" {
		return errors.NewValidation("referenceName", "must not be empty")
	}
	for _, t := range r.ReferenceType {
		if t != TypeBible && t != TypeAudio {
			return errors.NewValidation("referenceType", "unknown type "+t)
		}
	}
	return s.update(func(reg *Registry) error {
		if _, ok := reg.FindReference(r.ReferenceName); ok {
			return errors.Wrapf(errors.ErrAlreadyExists, "reference %q", r.ReferenceName)
		}
		reg.References = append(reg.References, r)
		return nil
	})
}

// RemoveReference unregisters a reference and deletes its tree. Any
// project pointing at it has its selection cleared; the projects
// themselves survive.
func (s *Store) RemoveReference(name string) error {
	return s.update(func(reg *Registry) error {
		for i := range reg.References {
			if reg.References[i].ReferenceName != name {
				continue
			}
			refPath := reg.References[i].ReferencePath
			reg.References = append(reg.References[:i], reg.References[i+1:]...)
			for j := range reg.Projects {
				if reg.Projects[j].ReferenceResource == name {
					reg.Projects[j].ReferenceResource = ""
				}
			}
			if refPath != "" {
				if err := os.RemoveAll(refPath); err != nil {
					return errors.NewIO("remove", refPath, err)
				}
			}
			return nil
		}
		return errors.NewNotFound("reference", name)
	})
}

// SetProjectReference selects a reference for a project. An empty
// reference name clears the selection.
func (s *Store) SetProjectReference(project, reference string) error {
	return s.update(func(reg *Registry) error {
		p, ok := reg.FindProject(project)
		if !ok {
			return errors.NewNotFound("project", project)
		}
		if reference != "" {
			if _, ok := reg.FindReference(reference); !ok {
				return errors.NewNotFound("reference", reference)
			}
		}
		p.ReferenceResource = reference
		return nil
	})
}
