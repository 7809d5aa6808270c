package types

// InstalledApp is the persisted record of one installed application
type InstalledApp struct {
	AppID             string   `json:"app_id"`
	InstalledPath     string   `json:"installed_path"`
	DownloadedBytes   uint64   `json:"downloaded_bytes"`
	TotalDownloadSize uint64   `json:"total_download_size"`
	DiskSize          uint64   `json:"disk_size"`
	Version           string   `json:"version"`
	LatestVersion     string   `json:"latest_version"`
	UpdatePending     bool     `json:"update_pending"`
	OS                string   `json:"os"`
	Language          string   `json:"language"`
	DisabledDLC       []string `json:"disabled_dlc"`
}

// AppType classifies a provider item
type AppType string

const (
	AppTypeGame        AppType = "game"
	AppTypeApplication AppType = "application"
	AppTypeTool        AppType = "tool"
)

// LaunchType describes how a launch option is started
type LaunchType string

const (
	LaunchTypeUnknown  LaunchType = "unknown"
	LaunchTypeLauncher LaunchType = "launcher"
	LaunchTypeGame     LaunchType = "game"
	LaunchTypeTool     LaunchType = "tool"
)

// LaunchOption describes one way to start an installed app
type LaunchOption struct {
	Description      string     `json:"description"`
	Executable       string     `json:"executable"`
	Arguments        string     `json:"arguments"`
	WorkingDirectory string     `json:"working_directory"`
	Environment      []string   `json:"environment"`
	LaunchType       LaunchType `json:"launch_type"`
	HardwareTags     []string   `json:"hardware_tags"`
}

// ImageType names the artwork format of an image
type ImageType string

const (
	ImagePortrait  ImageType = "portrait"
	ImageLandscape ImageType = "landscape"
)

// Image is a piece of catalog artwork
type Image struct {
	ImageType ImageType `json:"image_type"`
	URL       string    `json:"url"`
	Source    string    `json:"source"`
}

// ProviderRef ties an item to the provider that owns it
type ProviderRef struct {
	Provider      string `json:"provider"`
	ProviderAppID string `json:"provider_app_id"`
	StoreURL      string `json:"store_url"`
}

// ItemMetadata is the serialized metadata document for one catalog entry
type ItemMetadata struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Summary         string        `json:"summary"`
	Description     string        `json:"description"`
	Version         string        `json:"version"`
	Platform        string        `json:"platform"`
	DownloadSize    uint64        `json:"download_size"`
	DiskSize        uint64        `json:"disk_size"`
	RequiresNetwork bool          `json:"requires_network"`
	Website         string        `json:"website"`
	Providers       []ProviderRef `json:"providers"`
	Images          []Image       `json:"images"`
}

// ProviderItem is one catalog entry as listed by the provider
type ProviderItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Provider string  `json:"provider"`
	AppType  AppType `json:"app_type"`
}

// EulaEntry is a license agreement the user must accept before install
type EulaEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	URL      string `json:"url"`
	Body     string `json:"body"`
	Country  string `json:"country"`
	Language string `json:"language"`
}

// InstallOptions are the recognized install parameters
type InstallOptions struct {
	Platform string `json:"platform"`
	Language string `json:"language"`
	Verify   bool   `json:"verify"`
}

// InstallOptionDescription documents one install option and its values
type InstallOptionDescription struct {
	Key         string   `json:"key"`
	Description string   `json:"description"`
	Values      []string `json:"values"`
	Default     string   `json:"default"`
}

// PluginInfo identifies this provider to a host
type PluginInfo struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Version           string `json:"version"`
	MinimumAPIVersion string `json:"minimum_api_version"`
}
