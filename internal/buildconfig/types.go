package buildconfig

// BuildConfiguration is the resolved configuration handed to the bundler and dev server.
type BuildConfiguration struct {
	// Public URL prefix under which built assets are served, e.g. "/io724/"
	BasePath string `json:"base" yaml:"base"`
	// Transformation plugins, applied in order
	Plugins []PluginDescriptor `json:"plugins" yaml:"plugins"`
	// Local development server settings
	DevServer DevServer `json:"server" yaml:"server"`
}

// PluginDescriptor names a plugin registered with the plugin registry.
type PluginDescriptor struct {
	Name string `json:"name" yaml:"name"`
}

type DevServer struct {
	Port        int  `json:"port" yaml:"port"`
	OpenBrowser bool `json:"open" yaml:"open"`
}

// Overrides holds optional deploy-time values. Nil fields keep the default.
type Overrides struct {
	BasePath    *string
	Port        *int
	OpenBrowser *bool
}

// Clone returns a copy which shares no slices with c.
func (c BuildConfiguration) Clone() BuildConfiguration {
	out := c
	if c.Plugins != nil {
		out.Plugins = make([]PluginDescriptor, len(c.Plugins))
		copy(out.Plugins, c.Plugins)
	}
	return out
}

// PluginNames returns the plugin names in order.
func (c BuildConfiguration) PluginNames() []string {
	names := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		names = append(names, p.Name)
	}
	return names
}
