package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type ToolTransport string

const (
	TransportHTTP ToolTransport = "http"
	TransportMCP  ToolTransport = "mcp"
)

type Config struct {
	ComposioAPIKey  string `env:"COMPOSIO_API_KEY"`
	ComposioBaseURL string `env:"COMPOSIO_BASE_URL" envDefault:"https://backend.composio.dev"`
	ComposioUserID  string `env:"COMPOSIO_USER_ID"`

	// Auth configs for the linking flow; a service without one is skipped.
	GoogleDriveAuthConfigID    string `env:"GOOGLE_DRIVE_AUTH_CONFIG_ID"`
	NotionAuthConfigID         string `env:"NOTION_AUTH_CONFIG_ID"`
	GoogleCalendarAuthConfigID string `env:"GOOGLE_CAL_AUTH_CONFIG_ID"`

	// Tool execution transport
	Transport     ToolTransport `env:"TOOL_TRANSPORT" envDefault:"http"`
	MCPServerPath string        `env:"DRIVE_MCP_SERVER_PATH" envDefault:"./drive-mcp-server"`

	// Storage
	ConnectionsFilePath string `env:"CONNECTIONS_FILE" envDefault:"connections.json"`
	DownloadDir         string `env:"DOWNLOAD_DIR" envDefault:"./downloads"`

	// Pipeline settings
	SyllabusFileName string        `env:"SYLLABUS_FILE_NAME" envDefault:"syllabus.pdf"`
	NotionDatabaseID string        `env:"NOTION_DATABASE_ID"`
	CalendarID       string        `env:"CALENDAR_ID" envDefault:"primary"`
	MaxLessons       int           `env:"MAX_LESSONS" envDefault:"12"`
	CallDelay        time.Duration `env:"SLEEP_BETWEEN_CALLS" envDefault:"350ms"`
	LinkTimeout      time.Duration `env:"LINK_TIMEOUT" envDefault:"300s"`

	// Schedule anchor
	StartDate    string        `env:"START_DATE"` // YYYY-MM-DD or full timestamp
	StartTime    string        `env:"START_TIME" envDefault:"09:00"`
	Timezone     string        `env:"TIMEZONE" envDefault:"UTC"`
	LessonPeriod time.Duration `env:"LESSON_PERIOD" envDefault:"168h"`

	// Optional periodic re-run, cron spec (e.g. "0 6 * * 1")
	CronSchedule string `env:"CRON_SCHEDULE"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
