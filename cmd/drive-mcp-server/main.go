package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// FindFileParams parameters for the file search tool
type FindFileParams struct {
	Query string `json:"q" mcp:"Drive search query (e.g. \"name = 'syllabus.pdf'\")"`
}

// DownloadFileParams parameters for the file download tool
type DownloadFileParams struct {
	FileID string `json:"file_id" mcp:"Drive file id to download"`
}

// CreateEventParams parameters for the calendar event tool
type CreateEventParams struct {
	CalendarID        string `json:"calendar_id" mcp:"calendar id, 'primary' for the default calendar"`
	StartDatetime     string `json:"start_datetime" mcp:"event start, YYYY-MM-DDTHH:MM:SS wall clock"`
	Timezone          string `json:"timezone,omitempty" mcp:"IANA timezone name qualifying the start time"`
	Summary           string `json:"summary" mcp:"event title"`
	Description       string `json:"description,omitempty" mcp:"event description"`
	EventDurationHour int    `json:"event_duration_hour,omitempty" mcp:"event length in hours (default 1)"`
}

// OAuth2Credentials OAuth2 client credentials
type OAuth2Credentials struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
	AuthURI      string   `json:"auth_uri"`
	TokenURI     string   `json:"token_uri"`
}

// GoogleCredentialsFile credentials.json layout from Google Cloud Console
type GoogleCredentialsFile struct {
	Installed *OAuth2Credentials `json:"installed,omitempty"`
	Web       *OAuth2Credentials `json:"web,omitempty"`
}

// DriveMCPServer MCP server exposing Drive and Calendar tools
type DriveMCPServer struct {
	driveService    *drive.Service
	calendarService *calendar.Service
	config          *oauth2.Config
	downloadDir     string
}

// NewDriveMCPServer builds the server from OAuth2 credentials
func NewDriveMCPServer(credentialsJSON, downloadDir string) (*DriveMCPServer, error) {
	log.Printf("🔑 Initializing Drive MCP Server with OAuth2 credentials")

	credentials, err := parseGoogleCredentials(credentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OAuth2 credentials: %w", err)
	}

	config := &oauth2.Config{
		ClientID:     credentials.ClientID,
		ClientSecret: credentials.ClientSecret,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob", // desktop flow
		Scopes: []string{
			drive.DriveReadonlyScope,
			calendar.CalendarEventsScope,
		},
		Endpoint: google.Endpoint,
	}

	token, err := getToken(config)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth2 token: %w", err)
	}

	httpClient := config.Client(context.Background(), token)

	driveService, err := drive.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}
	calendarService, err := calendar.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &DriveMCPServer{
		driveService:    driveService,
		calendarService: calendarService,
		config:          config,
		downloadDir:     downloadDir,
	}, nil
}

// getToken obtains an OAuth2 token, using the on-disk cache when valid
func getToken(config *oauth2.Config) (*oauth2.Token, error) {
	tokenFile := getTokenFilePath()

	token, err := loadTokenFromFile(tokenFile)
	if err == nil {
		if token.Valid() {
			log.Printf("✅ Using cached OAuth2 token")
			return token, nil
		}
		log.Printf("⚠️ Cached token expired, refreshing...")
	}

	log.Printf("🔄 Starting OAuth2 flow for Google authentication")

	authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	log.Printf("🔗 Open this URL in your browser and authorize the application:")
	log.Printf("   %s", authURL)
	log.Printf("📝 Enter the authorization code: ")

	// Headless environments cannot read the code interactively, a
	// refresh token from the environment takes precedence.
	if refreshToken := os.Getenv("GOOGLE_REFRESH_TOKEN"); refreshToken != "" {
		log.Printf("📄 Using refresh token from environment variable")
		token = &oauth2.Token{RefreshToken: refreshToken}

		tokenSource := config.TokenSource(context.Background(), token)
		newToken, err := tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}

		if err := saveTokenToFile(tokenFile, newToken); err != nil {
			log.Printf("⚠️ Warning: failed to save refreshed token: %v", err)
		}
		return newToken, nil
	}

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return nil, fmt.Errorf("failed to read authorization code (you can also set GOOGLE_REFRESH_TOKEN env var): %w", err)
	}

	token, err = config.Exchange(context.Background(), authCode)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}

	if err := saveTokenToFile(tokenFile, token); err != nil {
		log.Printf("⚠️ Warning: failed to save token to cache: %v", err)
	}

	log.Printf("✅ Successfully obtained OAuth2 token")
	return token, nil
}

func getTokenFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "google-token.json"
	}
	return filepath.Join(homeDir, ".course-planner", "google-token.json")
}

func loadTokenFromFile(filename string) (*oauth2.Token, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(file).Decode(token)
	return token, err
}

func saveTokenToFile(filename string, token *oauth2.Token) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(token)
}

// parseGoogleCredentials accepts both the bare credentials layout and
// the Google Cloud Console credentials.json wrapper
func parseGoogleCredentials(credentialsJSON string) (*OAuth2Credentials, error) {
	var directCredentials OAuth2Credentials
	if err := json.Unmarshal([]byte(credentialsJSON), &directCredentials); err == nil {
		if directCredentials.ClientID != "" && directCredentials.ClientSecret != "" {
			log.Printf("✅ Parsed direct OAuth2 credentials format")
			return &directCredentials, nil
		}
	}

	var googleFile GoogleCredentialsFile
	if err := json.Unmarshal([]byte(credentialsJSON), &googleFile); err != nil {
		return nil, fmt.Errorf("failed to parse credentials as Google format: %w", err)
	}

	if googleFile.Installed != nil {
		log.Printf("✅ Parsed Google Cloud Console credentials (installed/desktop format)")
		return googleFile.Installed, nil
	}
	if googleFile.Web != nil {
		log.Printf("✅ Parsed Google Cloud Console credentials (web format)")
		return googleFile.Web, nil
	}

	return nil, fmt.Errorf("no valid credentials found in JSON - expected 'installed' or 'web' section")
}

// FindFile searches Drive for files matching the query
func (s *DriveMCPServer) FindFile(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[FindFileParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments

	log.Printf("🔍 MCP Server: Searching Drive for query '%s'", args.Query)

	list, err := s.driveService.Files.List().
		Q(args.Query).
		Fields("files(id, name, mimeType, size)").
		PageSize(25).
		Context(ctx).
		Do()
	if err != nil {
		return &mcp.CallToolResultFor[any]{
			IsError: true,
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("❌ Drive search failed: %v", err)},
			},
		}, nil
	}

	files := make([]map[string]any, 0, len(list.Files))
	for _, f := range list.Files {
		files = append(files, map[string]any{
			"id":   f.Id,
			"name": f.Name,
			"mime": f.MimeType,
		})
	}

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("🔍 Found %d files for query '%s'", len(files), args.Query)},
		},
		Meta: map[string]interface{}{
			"files":       files,
			"total_found": len(files),
			"success":     true,
		},
	}, nil
}

// DownloadFile fetches a Drive file into the download directory
func (s *DriveMCPServer) DownloadFile(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[DownloadFileParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments

	log.Printf("⬇️ MCP Server: Downloading Drive file '%s'", args.FileID)

	meta, err := s.driveService.Files.Get(args.FileID).Fields("name").Context(ctx).Do()
	if err != nil {
		return toolError(fmt.Sprintf("❌ Drive file lookup failed: %v", err)), nil
	}

	resp, err := s.driveService.Files.Get(args.FileID).Context(ctx).Download()
	if err != nil {
		return toolError(fmt.Sprintf("❌ Drive download failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(s.downloadDir, 0o755); err != nil {
		return toolError(fmt.Sprintf("❌ Failed to create download dir: %v", err)), nil
	}
	outPath := filepath.Join(s.downloadDir, meta.Name)
	out, err := os.Create(outPath)
	if err != nil {
		return toolError(fmt.Sprintf("❌ Failed to create local file: %v", err)), nil
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		return toolError(fmt.Sprintf("❌ Failed to write local file: %v", err)), nil
	}

	absPath, err := filepath.Abs(outPath)
	if err != nil {
		absPath = outPath
	}

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("⬇️ Downloaded %s (%d bytes) to %s", meta.Name, written, absPath)},
		},
		Meta: map[string]interface{}{
			"file_path": absPath,
			"name":      meta.Name,
			"bytes":     written,
			"success":   true,
		},
	}, nil
}

// CreateEvent inserts a calendar event
func (s *DriveMCPServer) CreateEvent(ctx context.Context, session *mcp.ServerSession, params *mcp.CallToolParamsFor[CreateEventParams]) (*mcp.CallToolResultFor[any], error) {
	args := params.Arguments

	log.Printf("📅 MCP Server: Creating calendar event '%s' at %s", args.Summary, args.StartDatetime)

	start, err := time.Parse("2006-01-02T15:04:05", args.StartDatetime)
	if err != nil {
		return toolError(fmt.Sprintf("❌ Bad start_datetime %q: %v", args.StartDatetime, err)), nil
	}
	durationHours := args.EventDurationHour
	if durationHours <= 0 {
		durationHours = 1
	}
	end := start.Add(time.Duration(durationHours) * time.Hour)

	calendarID := args.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}

	event := &calendar.Event{
		Summary:     args.Summary,
		Description: args.Description,
		Start: &calendar.EventDateTime{
			DateTime: start.Format("2006-01-02T15:04:05"),
			TimeZone: args.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format("2006-01-02T15:04:05"),
			TimeZone: args.Timezone,
		},
	}

	created, err := s.calendarService.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return toolError(fmt.Sprintf("❌ Calendar insert failed: %v", err)), nil
	}

	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("📅 Created event '%s' at %s", args.Summary, args.StartDatetime)},
		},
		Meta: map[string]interface{}{
			"event_id": created.Id,
			"link":     created.HtmlLink,
			"success":  true,
		},
	}, nil
}

func toolError(msg string) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	googleCredentials := os.Getenv("GOOGLE_CREDENTIALS_JSON")

	if googleCredentials == "" {
		if credentialsPath := os.Getenv("GOOGLE_CREDENTIALS_JSON_PATH"); credentialsPath != "" {
			if credentialsData, err := os.ReadFile(credentialsPath); err == nil {
				googleCredentials = string(credentialsData)
			}
		}
	}

	if googleCredentials == "" {
		log.Fatal("❌ Either GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_JSON_PATH environment variable is required")
	}

	downloadDir := os.Getenv("DOWNLOAD_DIR")
	if downloadDir == "" {
		downloadDir = "./downloads"
	}

	log.Printf("🚀 Starting Drive MCP Server")

	driveServer, err := NewDriveMCPServer(googleCredentials, downloadDir)
	if err != nil {
		log.Fatalf("❌ Failed to create Drive server: %v", err)
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "course-planner-drive-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "GOOGLEDRIVE_FIND_FILE",
		Description: "Searches Google Drive for files matching a query",
	}, driveServer.FindFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "GOOGLEDRIVE_DOWNLOAD_FILE",
		Description: "Downloads a Google Drive file to the local download directory",
	}, driveServer.DownloadFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "GOOGLECALENDAR_CREATE_EVENT",
		Description: "Creates a Google Calendar event",
	}, driveServer.CreateEvent)

	log.Printf("📋 Registered Drive MCP tools: GOOGLEDRIVE_FIND_FILE, GOOGLEDRIVE_DOWNLOAD_FILE, GOOGLECALENDAR_CREATE_EVENT")
	log.Printf("🔗 Starting Drive MCP server on stdin/stdout...")

	transport := mcp.NewStdioTransport()
	if err := server.Run(context.Background(), transport); err != nil {
		log.Fatalf("❌ Drive MCP Server failed: %v", err)
	}
}
