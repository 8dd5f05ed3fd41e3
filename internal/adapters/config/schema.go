package config

// Parcelfile is the structure of the optional parcel.yaml file.
type Parcelfile struct {
	Root       string            `yaml:"root"`
	CatalogURL string            `yaml:"catalog_url"`
	Output     string            `yaml:"output"`
	LogJSON    *bool             `yaml:"log_json"`
	Headers    map[string]string `yaml:"headers"`
}

// settings returns the scalar values the file sets, keyed like the
// environment variables they compete with.
func (f *Parcelfile) settings() map[string]any {
	s := make(map[string]any)
	if f.Root != "" {
		s[keyRoot] = f.Root
	}
	if f.CatalogURL != "" {
		s[keyCatalogURL] = f.CatalogURL
	}
	if f.Output != "" {
		s[keyOutput] = f.Output
	}
	if f.LogJSON != nil {
		s[keyLogJSON] = *f.LogJSON
	}
	return s
}
