package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"gitsync/internal/engine"
	"gitsync/internal/repo"
)

// RemoteEmpty is the legacy marker for "no remote" in repository files.
const RemoteEmpty = "empty"

// File is the on-disk repository configuration, in YAML or TOML.
type File struct {
	Root      string `yaml:"root,omitempty" toml:"root,omitempty"`
	Scenario  string `yaml:"scenario,omitempty" toml:"scenario,omitempty" validate:"omitempty,oneof=FAVORABLE FORCE ALL"`
	Quiet     bool   `yaml:"quiet,omitempty" toml:"quiet,omitempty"`
	CommitTag string `yaml:"commit_tag,omitempty" toml:"commit_tag,omitempty" validate:"omitempty,max=72,excludes=\n"`
	Interval  string `yaml:"interval,omitempty" toml:"interval,omitempty" validate:"omitempty,duration"`

	// DailySync is the legacy spelling of Scenario.
	DailySync string `yaml:"dailySync,omitempty" toml:"dailySync,omitempty"`

	Repositories map[string]*Section `yaml:"repositories" toml:"repositories" validate:"dive,keys,dirname,endkeys,required"`

	path string
}

// Section configures one repository, keyed by its directory name.
type Section struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	Remote   string   `yaml:"remote" toml:"remote" validate:"omitempty,gitremote"`
	Upstream string   `yaml:"upstream,omitempty" toml:"upstream,omitempty" validate:"omitempty,excludesall= /"`
	Branch   string   `yaml:"branch,omitempty" toml:"branch,omitempty" validate:"omitempty,excludesall= ~^:?*[\\"`
	Username string   `yaml:"username,omitempty" toml:"username,omitempty"`
	Email    string   `yaml:"email,omitempty" toml:"email,omitempty" validate:"omitempty,contains=@"`
	Exclude  []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("gitremote", func(fl validator.FieldLevel) bool {
		return validRemote(fl.Field().String())
	})
	_ = v.RegisterValidation("dirname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

// validRemote accepts the legacy marker, URLs with a git transport scheme,
// scp-like addresses and absolute local paths.
func validRemote(raw string) bool {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "" || raw == RemoteEmpty:
		return true
	case filepath.IsAbs(raw):
		return true
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return false
		}
		switch u.Scheme {
		case "http", "https", "ssh", "git", "file":
			return u.Host != "" || u.Scheme == "file"
		}
		return false
	default:
		// user@host:path
		at := strings.Index(raw, "@")
		colon := strings.Index(raw, ":")
		return at > 0 && colon > at+1 && colon < len(raw)-1
	}
}

// Load reads a repository file, choosing the decoder by extension.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	f, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	f.path = path
	return f, nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return "toml"
	}
	return "yaml"
}

// Parse decodes and validates a repository file in the given format
// ("yaml" or "toml").
func Parse(data []byte, format string) (*File, error) {
	f := &File{}
	switch format {
	case "toml":
		if _, err := toml.Decode(string(data), f); err != nil {
			return nil, err
		}
	case "yaml":
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	if err := f.normalize(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) normalize() error {
	if f.Scenario == "" && f.DailySync != "" {
		f.Scenario = f.DailySync
	}
	f.DailySync = ""
	f.Scenario = strings.ToUpper(strings.TrimSpace(f.Scenario))
	if f.Repositories == nil {
		f.Repositories = map[string]*Section{}
	}
	for name, s := range f.Repositories {
		if s == nil {
			return fmt.Errorf("repository %q: empty section", name)
		}
		s.Remote = strings.TrimSpace(s.Remote)
		s.Upstream = strings.TrimSpace(s.Upstream)
		s.Branch = strings.TrimSpace(s.Branch)
	}
	return nil
}

// Validate checks field constraints and reports every violation.
func (f *File) Validate() error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "File.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of %s, got %q", field, fe.Param(), fe.Value())
	case "gitremote":
		return fmt.Sprintf("%s is not a git remote URL: %q", field, fe.Value())
	case "dirname":
		return fmt.Sprintf("repository name %q must be a plain directory name", fe.Value())
	case "duration":
		return fmt.Sprintf("%s must be a duration like 24h, got %q", field, fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", field)
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}

// Path is where the file was loaded from or will be saved to.
func (f *File) Path() string { return f.path }

// SetPath changes the save destination.
func (f *File) SetPath(p string) { f.path = p }

// RootDir resolves Root against the file's directory. An empty Root means
// the directory holding the file.
func (f *File) RootDir() string {
	base := filepath.Dir(f.path)
	if f.path == "" {
		base = "."
	}
	root := f.Root
	if root == "" {
		root = base
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(base, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// ScenarioValue returns the parsed scenario, defaulting to ALL.
func (f *File) ScenarioValue() engine.Scenario {
	sc, err := engine.ParseScenario(f.Scenario)
	if err != nil {
		return engine.DefaultScenario
	}
	return sc
}

// IntervalValue returns the configured cycle interval, zero when unset.
func (f *File) IntervalValue() time.Duration {
	d, err := time.ParseDuration(f.Interval)
	if err != nil {
		return 0
	}
	return d
}

// Names returns repository names in sorted order.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Repositories))
	for n := range f.Repositories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Registry builds repository records under RootDir, ordered by name. The
// created flag reflects the filesystem at call time.
func (f *File) Registry() (*repo.Registry, error) {
	root := f.RootDir()
	var records []*repo.Repository
	for _, name := range f.Names() {
		s := f.Repositories[name]
		r := repo.New(name, filepath.Join(root, name))
		r.Enabled = s.Enabled
		r.Remote = ParseRemote(s.Remote)
		if s.Upstream != "" {
			r.Upstream = s.Upstream
		}
		if s.Branch != "" {
			r.Branch = s.Branch
		}
		if s.Username != "" {
			r.Username = s.Username
		}
		if s.Email != "" {
			r.Email = s.Email
		}
		r.IgnoreList = append([]string(nil), s.Exclude...)
		r.LocalRepoCreated = r.HasMetadata()
		records = append(records, r)
	}
	reg, err := repo.NewRegistry(records...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return reg, nil
}

// ParseRemote maps the file value to a repo.Remote; blank and the legacy
// marker mean no remote.
func ParseRemote(raw string) repo.Remote {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == RemoteEmpty {
		return repo.NoRemote()
	}
	return repo.RemoteURL(raw)
}

// Populate adds a disabled, remote-less section for every directory under
// RootDir that has none, and returns the added names.
func (f *File) Populate() ([]string, error) {
	root := f.RootDir()
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if f.Repositories == nil {
		f.Repositories = map[string]*Section{}
	}
	var added []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := f.Repositories[name]; ok {
			continue
		}
		f.Repositories[name] = &Section{Enabled: false, Remote: RemoteEmpty}
		added = append(added, name)
	}
	if f.Scenario == "" {
		f.Scenario = string(engine.DefaultScenario)
	}
	sort.Strings(added)
	return added, nil
}

// Encode renders the file in the given format.
func (f *File) Encode(format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case "toml":
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
	case "yaml":
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
	return buf.Bytes(), nil
}

// Save writes the file back to Path, in the format implied by its extension.
func (f *File) Save() error {
	if f.path == "" {
		return errors.New("config path not set")
	}
	data, err := f.Encode(formatOf(f.path))
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	if dir := filepath.Dir(f.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}

// LoadOrInit loads path, or returns an empty file bound to path when it
// does not exist yet.
func LoadOrInit(path string) (*File, error) {
	f, err := Load(path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return &File{path: path, Repositories: map[string]*Section{}}, nil
}
