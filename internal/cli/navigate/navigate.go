// Package navigate moves the operator between views. A view is addressed by a
// route path; the terminal navigator renders a navigation as the command to
// run next and remembers where a login redirect should return to.
package navigate

import (
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/brightline-agency/agency/internal/cli/userconfig"
)

// Well-known routes
const (
	RootPath  = "/"
	LoginPath = "/login"

	fromParam = "from"
)

// Location is a navigation target. From is the originally requested location
// a login redirect should return to.
type Location struct {
	Path string
	From string
}

// Root is the application root
func Root() Location {
	return Location{Path: RootPath}
}

// Login is the login view, remembering from for the redirect back
func Login(from string) Location {
	return Location{Path: LoginPath, From: from}
}

// To is a plain location
func To(path string) Location {
	if path == "" {
		return Root()
	}
	return Location{Path: path}
}

func (l Location) String() string {
	if l.From == "" {
		return l.Path
	}
	return l.Path + "?" + url.Values{fromParam: {l.From}}.Encode()
}

// Parse reads a location rendered by String
func Parse(s string) Location {
	u, err := url.Parse(s)
	if err != nil || u.Path == "" {
		return Root()
	}
	return Location{Path: u.Path, From: u.Query().Get(fromParam)}
}

// Navigator performs navigations
type Navigator interface {
	Navigate(loc Location)
}

// Func adapts a function to Navigator
type Func func(loc Location)

func (f Func) Navigate(loc Location) { f(loc) }

// Recorder remembers every navigation, in order
type Recorder struct {
	mu        sync.Mutex
	locations []Location
}

func (r *Recorder) Navigate(loc Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, loc)
}

// Locations returns a copy of the recorded navigations
func (r *Recorder) Locations() []Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Location(nil), r.locations...)
}

// Count returns how many navigations targeted path
func (r *Recorder) Count(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, loc := range r.locations {
		if loc.Path == path {
			n++
		}
	}
	return n
}

// Terminal renders navigations for a CLI operator
type Terminal struct {
	out    io.Writer
	state  *userconfig.Store
	logger zerolog.Logger

	mu     sync.Mutex
	routes map[string]string
}

// NewTerminal writes navigation hints to out and keeps login return locations in state
func NewTerminal(out io.Writer, state *userconfig.Store, logger zerolog.Logger) *Terminal {
	return &Terminal{
		out:    out,
		state:  state,
		logger: logger,
		routes: map[string]string{},
	}
}

// Register maps a route path to the command line that renders it
func (t *Terminal) Register(path, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[path] = command
}

// Command returns the command line registered for path
func (t *Terminal) Command(path string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	command, ok := t.routes[path]
	return command, ok
}

func (t *Terminal) Navigate(loc Location) {
	command, ok := t.Command(loc.Path)
	if !ok {
		command = loc.Path
	}

	if loc.Path == LoginPath {
		if loc.From != "" && t.state != nil {
			if err := t.state.SetPendingRedirect(loc.From); err != nil {
				t.logger.Warn().Err(err).Msg("Failed to remember redirect location")
			}
		}
		fmt.Fprintf(t.out, "→ Sign in required. Run: %s\n", command)
		return
	}

	if loc.Path == RootPath {
		fmt.Fprintf(t.out, "→ Back to: %s\n", command)
		return
	}

	fmt.Fprintf(t.out, "→ Continue with: %s\n", command)
}
