package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"course-planner/internal/artifact"
	"course-planner/internal/composio"
	"course-planner/internal/config"
	"course-planner/internal/connections"
	"course-planner/internal/linker"
	"course-planner/internal/schedule"
	"course-planner/internal/syllabus"
)

// Tool slugs exposed by the integration layer.
const (
	SlugFindFile     = "GOOGLEDRIVE_FIND_FILE"
	SlugDownloadFile = "GOOGLEDRIVE_DOWNLOAD_FILE"
	SlugInsertRow    = "NOTION_INSERT_ROW_DATABASE"
	SlugCreateEvent  = "GOOGLECALENDAR_CREATE_EVENT"
)

// Service keys in the connection snapshot.
const (
	ServiceDrive    = "google_drive"
	ServiceNotion   = "notion"
	ServiceCalendar = "google_calendar"
)

// Invoker executes one logical remote tool call.
type Invoker interface {
	SetUser(userID string)
	Execute(ctx context.Context, slug string, args map[string]any) composio.Result
}

// Planner runs the whole syllabus pipeline: link accounts if needed,
// find and download the syllabus, segment it into lessons, then push
// rows to Notion and events to the calendar. Strictly sequential.
type Planner struct {
	cfg       *config.Config
	invoker   Invoker
	linker    linker.Linker
	store     connections.Store
	extractor syllabus.Extractor
}

func New(cfg *config.Config, inv Invoker, lk linker.Linker, store connections.Store, ex syllabus.Extractor) *Planner {
	return &Planner{cfg: cfg, invoker: inv, linker: lk, store: store, extractor: ex}
}

// Run executes one full pipeline pass. Must-have failures (find,
// download, locate, extract, segment) abort the run; per-item
// downstream write failures are logged and skipped.
func (p *Planner) Run(ctx context.Context) error {
	if err := os.MkdirAll(p.cfg.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("ensure download dir: %w", err)
	}

	snap, err := p.ensureLinked(ctx)
	if err != nil {
		return fmt.Errorf("auth/linking flow error: %w", err)
	}
	p.invoker.SetUser(snap.UserID)

	localPath, err := p.fetchSyllabus(ctx)
	if err != nil {
		return err
	}
	log.Printf("✅ Syllabus downloaded to: %s", localPath)
	p.pause(ctx)

	text, err := p.extractor.ExtractText(localPath)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	lessons := syllabus.Segment(text, p.cfg.MaxLessons)
	if len(lessons) == 0 {
		return fmt.Errorf("no lessons parsed from document")
	}
	log.Printf("📚 Parsed %d lessons", len(lessons))

	p.createNotionRows(ctx, lessons)

	scheduled, err := schedule.Project(lessons, schedule.Options{
		StartDate: p.cfg.StartDate,
		StartTime: p.cfg.StartTime,
		Timezone:  p.cfg.Timezone,
		Period:    p.cfg.LessonPeriod,
	})
	if err != nil {
		return fmt.Errorf("schedule projection: %w", err)
	}
	p.createCalendarEvents(ctx, scheduled)

	// Idempotent bookkeeping: keep the snapshot fresh even when linking
	// made no changes this run.
	if err := p.store.Save(snap); err != nil {
		log.Printf("⚠️ Failed to re-save connections snapshot: %v", err)
	}

	log.Printf("🎉 Done. Check Notion and the calendar for results.")
	return nil
}

// ensureLinked loads the snapshot, resolves the user identity and runs
// the linking flow for every configured service that has no connection
// token yet, persisting after each successful link.
func (p *Planner) ensureLinked(ctx context.Context) (connections.Snapshot, error) {
	snap, err := p.store.Load()
	if err != nil {
		return snap, fmt.Errorf("load connections: %w", err)
	}
	if snap.UserID == "" {
		snap.UserID = p.cfg.ComposioUserID
	}
	if snap.UserID == "" {
		snap.UserID = uuid.NewString()
	}
	log.Printf("👤 Using user_id: %s", snap.UserID)

	services := []struct {
		key          string
		friendly     string
		authConfigID string
	}{
		{ServiceDrive, "Google Drive", p.cfg.GoogleDriveAuthConfigID},
		{ServiceNotion, "Notion", p.cfg.NotionAuthConfigID},
		{ServiceCalendar, "Google Calendar", p.cfg.GoogleCalendarAuthConfigID},
	}
	for _, svc := range services {
		if snap.Linked(svc.key) || svc.authConfigID == "" {
			log.Printf("ℹ️ %s connection exists or auth config not provided", svc.friendly)
			continue
		}
		token, err := p.linker.LinkAndWait(ctx, snap.UserID, svc.authConfigID)
		if err != nil {
			return snap, fmt.Errorf("link %s: %w", svc.friendly, err)
		}
		snap.Connections[svc.key] = token
		if err := p.store.Save(snap); err != nil {
			return snap, fmt.Errorf("save connections after linking %s: %w", svc.friendly, err)
		}
		log.Printf("✅ %s linked", svc.friendly)
	}
	return snap, nil
}

// fetchSyllabus finds the syllabus in the remote file service,
// downloads it and resolves its on-disk location.
func (p *Planner) fetchSyllabus(ctx context.Context) (string, error) {
	log.Printf("🔍 Searching for file named exactly '%s'...", p.cfg.SyllabusFileName)
	findRes := p.invoker.Execute(ctx, SlugFindFile, map[string]any{
		"q": fmt.Sprintf("name = '%s'", p.cfg.SyllabusFileName),
	})
	if !findRes.OK {
		return "", fmt.Errorf("file search failed: %s", findRes.Err)
	}

	fileID := pickFileID(findRes.Data)
	if fileID == "" {
		return "", fmt.Errorf("no file named '%s' found in the remote service", p.cfg.SyllabusFileName)
	}
	log.Printf("📁 Found file id: %s", fileID)
	p.pause(ctx)

	log.Printf("⬇️ Downloading file...")
	dlRes := p.invoker.Execute(ctx, SlugDownloadFile, map[string]any{"file_id": fileID})
	if !dlRes.OK {
		return "", fmt.Errorf("download failed: %s", dlRes.Err)
	}

	localPath, err := artifact.Resolve(dlRes.Data, p.cfg.DownloadDir, p.cfg.SyllabusFileName)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.Printf("❌ Could not locate the downloaded file on disk. Raw download response:")
			log.Printf("%s", dumpPayload(dlRes.Data, 4000))
		}
		return "", fmt.Errorf("locate downloaded file: %w", err)
	}
	return localPath, nil
}

// pickFileID extracts the first file's identifier from whatever list
// shape the find tool returned.
func pickFileID(data any) string {
	var files []any
	switch v := data.(type) {
	case map[string]any:
		if l, ok := v["files"].([]any); ok {
			files = l
		} else if l, ok := v["items"].([]any); ok {
			files = l
		}
	case []any:
		files = v
	}
	if len(files) == 0 {
		return ""
	}
	meta, ok := files[0].(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"id", "file_id", "driveId"} {
		if id, ok := meta[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

func (p *Planner) createNotionRows(ctx context.Context, lessons []syllabus.Lesson) {
	if p.cfg.NotionDatabaseID == "" {
		log.Printf("ℹ️ NOTION_DATABASE_ID not set; skipping Notion rows")
		return
	}
	log.Printf("📝 Creating Notion rows...")
	for _, lesson := range lessons {
		log.Printf(" -> Notion row: %s", lesson.Title)
		res := p.invoker.Execute(ctx, SlugInsertRow, map[string]any{
			"database_id": p.cfg.NotionDatabaseID,
			"properties": []any{
				map[string]any{"name": "Name", "type": "title", "value": lesson.Title},
				map[string]any{"name": "Description", "type": "rich_text", "value": lesson.Body},
			},
		})
		if !res.OK {
			// one failed row must not abort the remaining schedule
			log.Printf("❌ Notion row failed: %s", res.Err)
		}
		p.pause(ctx)
	}
}

func (p *Planner) createCalendarEvents(ctx context.Context, scheduled []schedule.ScheduledLesson) {
	log.Printf("📅 Creating calendar events...")
	for _, item := range scheduled {
		log.Printf(" -> Scheduling '%s' at %s (%s)", item.Title, item.StartISO(), item.Timezone)
		res := p.invoker.Execute(ctx, SlugCreateEvent, map[string]any{
			"calendar_id":         p.cfg.CalendarID,
			"start_datetime":      item.StartISO(),
			"timezone":            item.Timezone,
			"summary":             item.Title,
			"description":         item.Body,
			"event_duration_hour": 1,
		})
		if !res.OK {
			log.Printf("❌ Calendar event failed: %s", res.Err)
		}
		p.pause(ctx)
	}
}

// pause inserts the fixed inter-call delay the remote side is
// sensitive to; it is not needed for correctness.
func (p *Planner) pause(ctx context.Context) {
	if p.cfg.CallDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.CallDelay):
	}
}

func dumpPayload(data any, limit int) string {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	if len(raw) > limit {
		raw = raw[:limit]
	}
	return string(raw)
}
