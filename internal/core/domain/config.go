package domain

const (
	// DefaultCatalogURL is the catalog location used when none is configured.
	DefaultCatalogURL = "https://parcel.trai.ch/catalog/v1.json"

	// ClientHeader is the outbound header carrying the client identifier.
	ClientHeader = "User-Agent"

	// EnvPrefix prefixes every environment override (PARCEL_ROOT, PARCEL_CATALOG_URL, ...).
	EnvPrefix = "PARCEL"
)

// Output modes accepted by the --output flag and the PARCEL_OUTPUT variable.
const (
	OutputAuto        = "auto"
	OutputInteractive = "interactive"
	OutputLinear      = "linear"
)

// Config is the resolved runtime configuration.
type Config struct {
	// Root is the installation root directory.
	Root string
	// CatalogURL is where the catalog text is fetched from.
	CatalogURL string
	// Headers are sent with every outbound request, always including the client identifier.
	Headers map[string]string
	// OutputMode selects the renderer: "auto", "interactive" or "linear".
	OutputMode string
	// LogJSON switches the logger to JSON output.
	LogJSON bool
}

// Overrides carries values given explicitly on the command line. Empty fields
// fall through to the environment, the config file, and the defaults.
type Overrides struct {
	ConfigFile string
	Root       string
	CatalogURL string
	Headers    map[string]string
	OutputMode string
	LogJSON    bool
}
