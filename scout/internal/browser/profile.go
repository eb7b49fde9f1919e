package browser

// Profile configures per-page emulation. The light profile disables
// script execution and blocks everything heavy; listing pages on the
// target site are server-rendered so this loses nothing. The full
// profile keeps scripts enabled for detail pages whose stream embeds
// attach late.
type Profile struct {
	Name           string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	Timezone       string
	DisableJS      bool

	// BlockResources lists resource types to abort: images, fonts,
	// media, stylesheets.
	BlockResources []string
}

func (p *Profile) defaults() {
	if p.ViewportWidth <= 0 {
		p.ViewportWidth = 1920
	}
	if p.ViewportHeight <= 0 {
		p.ViewportHeight = 1080
	}
	if p.Locale == "" {
		p.Locale = "en-US"
	}
	if p.Timezone == "" {
		p.Timezone = "America/New_York"
	}
}

// Light is the listing-page profile: no scripts, minimal viewport,
// aggressive resource blocking.
func Light() Profile {
	return Profile{
		Name:           "light",
		ViewportWidth:  1280,
		ViewportHeight: 720,
		DisableJS:      true,
		BlockResources: []string{"images", "fonts", "media", "stylesheets"},
	}
}

// Full is the detail-page profile: scripts enabled, fonts and media
// still blocked.
func Full() Profile {
	return Profile{
		Name:           "full",
		BlockResources: []string{"fonts", "media"},
	}
}
