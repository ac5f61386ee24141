package release

import "time"

// Actor identifies who ran an install.
type Actor struct {
	Hostname string `json:"hostname"`
	Username string `json:"username"`
}

// Clone returns a copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Receipt records a completed install.
type Receipt struct {
	Version     string             `json:"version"`
	Mode        string             `json:"mode"`
	Platform    string             `json:"platform"`
	URL         string             `json:"url,omitempty"`
	SHA256      string             `json:"sha256,omitempty"`
	Binaries    InstalledBinarySet `json:"binaries"`
	DataDir     string             `json:"data_dir"`
	LogPath     string             `json:"log_path"`
	InstalledAt time.Time          `json:"installed_at"`
	InstalledBy *Actor             `json:"installed_by,omitempty"`
}
