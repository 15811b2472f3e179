package hcl_adapter

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/launcher/internal/config"
)

// fileRoot mirrors the top level of launcher.hcl.
type fileRoot struct {
	DataDir        *string `hcl:"data_dir,optional"`
	ReleaseType    *string `hcl:"release_type,optional"`
	DevMode        *bool   `hcl:"dev_mode,optional"`
	ProtocolScheme *string `hcl:"protocol_scheme,optional"`

	Runtime      *runtimeBlock  `hcl:"runtime,block"`
	Dependencies *depsBlock     `hcl:"dependencies,block"`
	Endpoints    *endpointBlock `hcl:"endpoints,block"`
	UI           *uiBlock       `hcl:"ui,block"`
	Presence     *presenceBlock `hcl:"presence,block"`
	Remain       hcl.Body       `hcl:",remain"`
}

type runtimeBlock struct {
	Major    *int  `hcl:"major,optional"`
	Required *bool `hcl:"required,optional"`
}

type depsBlock struct {
	Archive *string `hcl:"archive,optional"`
	Version *string `hcl:"version,optional"`
	Target  *string `hcl:"target,optional"`
}

type endpointBlock struct {
	Metadata        *string `hcl:"metadata,optional"`
	RuntimeManifest *string `hcl:"runtime_manifest,optional"`
	Auth            *string `hcl:"auth,optional"`
	Updates         *string `hcl:"updates,optional"`
	Timeout         *string `hcl:"timeout,optional"`
}

type uiBlock struct {
	Command     []string `hcl:"command,optional"`
	QuitOnClose *bool    `hcl:"quit_on_close,optional"`
}

type presenceBlock struct {
	ClientID *string `hcl:"client_id,optional"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// translate overlays the decoded file onto m.
func translate(root *fileRoot, m *config.Model) error {
	oldDataDir := m.DataDir
	set(&m.DataDir, root.DataDir)
	set(&m.ReleaseType, root.ReleaseType)
	set(&m.DevMode, root.DevMode)
	set(&m.ProtocolScheme, root.ProtocolScheme)

	// The default deps target follows data_dir unless set explicitly.
	if m.DataDir != oldDataDir {
		m.Dependencies.Target = filepath.Join(m.DataDir, "deps")
	}

	if r := root.Runtime; r != nil {
		set(&m.Runtime.Major, r.Major)
		set(&m.Runtime.Required, r.Required)
	}
	if d := root.Dependencies; d != nil {
		set(&m.Dependencies.Archive, d.Archive)
		set(&m.Dependencies.Version, d.Version)
		set(&m.Dependencies.Target, d.Target)
	}
	if e := root.Endpoints; e != nil {
		set(&m.Endpoints.Metadata, e.Metadata)
		set(&m.Endpoints.RuntimeManifest, e.RuntimeManifest)
		set(&m.Endpoints.Auth, e.Auth)
		set(&m.Endpoints.Updates, e.Updates)
		if e.Timeout != nil {
			d, err := time.ParseDuration(*e.Timeout)
			if err != nil {
				return fmt.Errorf("endpoints.timeout: %w", err)
			}
			m.Endpoints.Timeout = d
		}
	}
	if u := root.UI; u != nil {
		if u.Command != nil {
			m.UI.Command = u.Command
		}
		set(&m.UI.QuitOnClose, u.QuitOnClose)
	}
	if p := root.Presence; p != nil {
		set(&m.Presence.ClientID, p.ClientID)
	}
	return m.Validate()
}
