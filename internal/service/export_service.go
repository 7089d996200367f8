package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/fyp-portal-api/internal/defense"
	"github.com/noah-isme/fyp-portal-api/internal/models"
	"github.com/noah-isme/fyp-portal-api/pkg/export"
	"github.com/noah-isme/fyp-portal-api/pkg/storage"
)

type scheduleSource interface {
	ListScheduledBetween(ctx context.Context, from, to *time.Time, roomID string) ([]models.ProjectGroup, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.Event) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	Timezone  string
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders the defense schedule and persists the file behind a signed URL.
type ExportService struct {
	schedule scheduleSource
	advisors activeAdvisorReader
	students studentReader
	settings defenseSettingsReader
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	ics      icsRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// ExportRenderers overrides the default renderers.
type ExportRenderers struct {
	CSV csvRenderer
	PDF pdfRenderer
	ICS icsRenderer
}

var scheduleHeaders = []string{"Date", "Time", "Room", "Project", "Students", "Supervisor", "Main Examiner", "Second Examiner", "Third Examiner"}

// NewExportService constructs an ExportService.
func NewExportService(schedule scheduleSource, advisors activeAdvisorReader, students studentReader, settings defenseSettingsReader, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers ExportRenderers) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers.CSV == nil {
		renderers.CSV = export.NewCSVExporter()
	}
	if renderers.PDF == nil {
		renderers.PDF = export.NewPDFExporter()
	}
	if renderers.ICS == nil {
		renderers.ICS = export.NewICSExporter("")
	}
	return &ExportService{
		schedule: schedule,
		advisors: advisors,
		students: students,
		settings: settings,
		storage:  storage,
		csv:      renderers.CSV,
		pdf:      renderers.PDF,
		ics:      renderers.ICS,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate renders the schedule selected by the job and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	rows, timezone, err := s.loadRows(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(scheduleDataset(rows))
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(scheduleDataset(rows), "Defense Schedule", periodLabel(job.Params))
	case models.ExportFormatICS:
		var events []export.Event
		events, err = s.calendarEvents(rows, timezone)
		if err == nil {
			payload, err = s.ics.Render("Defense Schedule", events)
		}
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Sugar().Infow("defense schedule exported", "job_id", job.ID, "format", job.Params.Format, "rows", len(rows))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/defense/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

type scheduleRow struct {
	project    models.ProjectGroup
	date       string
	slot       string
	roomID     string
	roomName   string
	students   string
	supervisor string
	examiners  [3]string
}

func (s *ExportService) loadRows(ctx context.Context, params models.ExportJobParams) ([]scheduleRow, string, error) {
	from, err := parseOptionalDate(params.From)
	if err != nil {
		return nil, "", err
	}
	to, err := parseOptionalDate(params.To)
	if err != nil {
		return nil, "", err
	}
	projects, err := s.schedule.ListScheduledBetween(ctx, from, to, deref(params.RoomID))
	if err != nil {
		return nil, "", fmt.Errorf("load schedule: %w", err)
	}
	advisors, err := s.advisors.ListActive(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load advisors: %w", err)
	}
	names := make(map[string]string, len(advisors))
	for _, a := range advisors {
		names[a.ID] = a.FullName
	}
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	students, err := s.students.ListByProjectIDs(ctx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("load students: %w", err)
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, "", err
	}
	roomNames := make(map[string]string, len(settings.Rooms))
	for _, room := range settings.Rooms {
		roomNames[room.ID] = room.Name
	}

	nameOf := func(id *string) string {
		if id == nil {
			return ""
		}
		if name, ok := names[*id]; ok && name != "" {
			return name
		}
		return *id
	}
	rows := make([]scheduleRow, 0, len(projects))
	for _, p := range projects {
		if !p.IsScheduled() {
			continue
		}
		memberNames := make([]string, 0, len(students[p.ID]))
		for _, st := range students[p.ID] {
			memberNames = append(memberNames, st.FullName)
		}
		roomName := roomNames[*p.DefenseRoomID]
		if roomName == "" {
			roomName = *p.DefenseRoomID
		}
		owner := p.AdvisorID
		rows = append(rows, scheduleRow{
			project:    p,
			date:       p.DefenseDate.Format(models.DefenseDateLayout),
			slot:       *p.DefenseTime,
			roomID:     *p.DefenseRoomID,
			roomName:   roomName,
			students:   strings.Join(memberNames, ", "),
			supervisor: nameOf(&owner),
			examiners:  [3]string{nameOf(p.MainCommitteeID), nameOf(p.SecondCommitteeID), nameOf(p.ThirdCommitteeID)},
		})
	}
	timezone := settings.Timezone
	if timezone == "" {
		timezone = s.cfg.Timezone
	}
	return rows, timezone, nil
}

func scheduleDataset(rows []scheduleRow) export.Dataset {
	data := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, map[string]string{
			"Date":            row.date,
			"Time":            row.slot,
			"Room":            row.roomName,
			"Project":         row.project.Title,
			"Students":        row.students,
			"Supervisor":      row.supervisor,
			"Main Examiner":   row.examiners[0],
			"Second Examiner": row.examiners[1],
			"Third Examiner":  row.examiners[2],
		})
	}
	return export.Dataset{
		Headers: scheduleHeaders,
		Rows:    data,
		Widths:  []float64{22, 22, 25, 55, 45, 30, 30, 30, 30},
	}
}

func (s *ExportService) calendarEvents(rows []scheduleRow, timezone string) ([]export.Event, error) {
	loc := s.location(timezone)
	events := make([]export.Event, 0, len(rows))
	for _, row := range rows {
		slot, err := defense.ParseTimeSlot(row.slot)
		if err != nil {
			s.logger.Sugar().Warnw("skipping defense with unparseable time slot", "project_id", row.project.ID, "slot", row.slot)
			continue
		}
		day, err := time.ParseInLocation(models.DefenseDateLayout, row.date, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, export.Event{
			UID:      fmt.Sprintf("defense-%s@fyp-portal", row.project.ID),
			Summary:  "Defense: " + row.project.Title,
			Location: row.roomName,
			Description: fmt.Sprintf("Students: %s\nSupervisor: %s\nExaminers: %s, %s, %s",
				row.students, row.supervisor, row.examiners[0], row.examiners[1], row.examiners[2]),
			Start: day.Add(time.Duration(slot.Start) * time.Minute),
			End:   day.Add(time.Duration(slot.End) * time.Minute),
		})
	}
	return events, nil
}

func (s *ExportService) location(timezone string) *time.Location {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err == nil {
			return loc
		}
		s.logger.Sugar().Warnw("unknown defense timezone, using UTC", "timezone", timezone)
	}
	return time.UTC
}

func parseOptionalDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(models.DefenseDateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", *raw, err)
	}
	return &t, nil
}

func periodLabel(params models.ExportJobParams) string {
	from, to := deref(params.From), deref(params.To)
	switch {
	case from != "" && to != "":
		return fmt.Sprintf("%s to %s", from, to)
	case from != "":
		return "from " + from
	case to != "":
		return "until " + to
	default:
		return "all scheduled defenses"
	}
}

func buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.RoomID != nil && *job.Params.RoomID != "" {
		scope = sanitizeFilename(*job.Params.RoomID)
	}
	return fmt.Sprintf("defense_schedule_%s_%s.%s", scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
