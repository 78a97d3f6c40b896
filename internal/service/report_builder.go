package service

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/noah-isme/sdg-impact-api/internal/models"
	"github.com/noah-isme/sdg-impact-api/pkg/export"
)

// CSV header rows per report type.
var (
	SDGHeaders     = []string{"goal", "name", "color", "participants", "total_points", "activity_count"}
	FacultyHeaders = []string{"faculty", "students", "total_points", "average_points", "activities", "average_activities"}
	EventHeaders   = []string{"event_id", "title", "registered", "attended", "cancelled", "attendance_rate_pct", "average_rating", "favorites"}
	RewardHeaders  = []string{"reward_id", "name", "category", "point_cost", "redemptions", "redemption_rate_pct", "stock"}
)

// Section titles of the PDF report, after the cover page.
const (
	SectionSummary  = "Summary"
	SectionSDG      = "SDG Participation"
	SectionFaculty  = "Faculty Engagement"
	SectionEvents   = "Event Performance"
	SectionRewards  = "Reward Redemptions"
	SectionInsights = "Insights"
)

const reportTitle = "SDG Impact Report"

// ReportData is every aggregate a report needs, computed from one snapshot.
// Faculty is set when the student side was limited to one faculty.
type ReportData struct {
	Faculty     string
	SDG         []models.SDGSummary
	Faculties   []models.FacultySummary
	Events      []models.EventSummary
	Rewards     []models.RewardSummary
	Categories  []models.RewardCategorySummary
	Overview    models.AnalyticsOverview
	Faults      []IntegrityFault
	GeneratedAt time.Time
}

func (d ReportData) items(dimension string) []interface{} {
	var out []interface{}
	switch dimension {
	case DimensionSDG:
		for _, s := range d.SDG {
			out = append(out, s)
		}
	case DimensionFaculty:
		for _, s := range d.Faculties {
			out = append(out, s)
		}
	case DimensionEvent:
		for _, s := range d.Events {
			out = append(out, s)
		}
	case DimensionReward:
		for _, s := range d.Rewards {
			out = append(out, s)
		}
	}
	return out
}

// SDGDataset renders SDG summaries as a table.
func SDGDataset(items []models.SDGSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, map[string]string{
			"goal":           export.FormatCount(s.Number),
			"name":           s.Name,
			"color":          s.Color,
			"participants":   export.FormatCount(s.Participants),
			"total_points":   export.FormatCount(s.TotalPoints),
			"activity_count": export.FormatCount(s.ActivityCount),
		})
	}
	return export.Dataset{Headers: SDGHeaders, Rows: rows}
}

// FacultyDataset renders faculty summaries as a table.
func FacultyDataset(items []models.FacultySummary) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, map[string]string{
			"faculty":            s.Faculty,
			"students":           export.FormatCount(s.Students),
			"total_points":       export.FormatCount(s.TotalPoints),
			"average_points":     export.FormatDecimal(s.AveragePoints),
			"activities":         export.FormatCount(s.Activities),
			"average_activities": export.FormatDecimal(s.AverageActivities),
		})
	}
	return export.Dataset{Headers: FacultyHeaders, Rows: rows}
}

// EventDataset renders event summaries as a table.
func EventDataset(items []models.EventSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, map[string]string{
			"event_id":            s.EventID,
			"title":               s.Title,
			"registered":          export.FormatCount(s.Registered),
			"attended":            export.FormatCount(s.Attended),
			"cancelled":           export.FormatCount(s.Cancelled),
			"attendance_rate_pct": export.FormatPercent(s.AttendanceRate),
			"average_rating":      export.FormatDecimal(s.AverageRating),
			"favorites":           export.FormatCount(s.Favorites),
		})
	}
	return export.Dataset{Headers: EventHeaders, Rows: rows}
}

// RewardDataset renders reward summaries as a table.
func RewardDataset(items []models.RewardSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(items))
	for _, s := range items {
		rows = append(rows, map[string]string{
			"reward_id":           s.RewardID,
			"name":                s.Name,
			"category":            s.Category,
			"point_cost":          export.FormatCount(s.PointCost),
			"redemptions":         export.FormatCount(s.Redemptions),
			"redemption_rate_pct": export.FormatDecimal(s.RedemptionRate),
			"stock":               export.FormatCount(s.Stock),
		})
	}
	return export.Dataset{Headers: RewardHeaders, Rows: rows}
}

// ReportBuilder lays out ReportData as a sectioned document.
type ReportBuilder struct {
	rules   []InsightRule
	printer *message.Printer
}

// NewReportBuilder constructs a builder. Nil rules fall back to DefaultInsightRules.
func NewReportBuilder(rules []InsightRule) *ReportBuilder {
	if rules == nil {
		rules = DefaultInsightRules()
	}
	return &ReportBuilder{rules: rules, printer: message.NewPrinter(language.English)}
}

// Build assembles the cover and every report section in fixed order.
func (b *ReportBuilder) Build(data ReportData) export.Document {
	sdg := SDGDataset(data.SDG)
	faculty := FacultyDataset(data.Faculties)
	events := EventDataset(data.Events)
	rewards := RewardDataset(data.Rewards)

	return export.Document{
		Title:       reportTitle,
		Subtitle:    "Participation across the Sustainable Development Goals",
		GeneratedAt: data.GeneratedAt,
		Sections: []export.Section{
			{Title: SectionSummary, Paragraphs: b.summary(data)},
			{Title: SectionSDG, Paragraphs: b.sdgNarrative(data), Table: &sdg},
			{Title: SectionFaculty, Paragraphs: b.facultyNarrative(data), Table: &faculty},
			{Title: SectionEvents, Paragraphs: b.eventNarrative(data), Table: &events},
			{Title: SectionRewards, Paragraphs: b.rewardNarrative(data), Table: &rewards},
			{Title: SectionInsights, Paragraphs: b.Highlights(data), Bullets: EvaluateInsights(b.rules, data)},
		},
	}
}

func (b *ReportBuilder) summary(data ReportData) []string {
	o := data.Overview
	out := []string{
		b.printer.Sprintf("%d students across %d faculties earned %d points from %d activities.",
			o.Students, o.Faculties, o.TotalPoints, o.Activities),
		b.printer.Sprintf("%d events drew %d registrations, %d of them attended (%s%% average attendance).",
			o.Events, o.Registrations, o.Attended, export.FormatPercent(o.AverageAttendanceRate)),
		b.printer.Sprintf("%d badges were awarded and %d rewards redeemed. %d of 17 goals saw activity.",
			o.BadgesAwarded, o.Redemptions, o.ActiveGoals),
	}
	if len(data.Faults) > 0 {
		out = append(out, b.printer.Sprintf("%d inconsistent records were skipped while aggregating.", len(data.Faults)))
	}
	return out
}

func (b *ReportBuilder) sdgNarrative(data ReportData) []string {
	return []string{"Participants are distinct students with at least one activity tagged with the goal. " +
		"An activity tagged with several goals contributes its full points to each of them."}
}

func (b *ReportBuilder) facultyNarrative(data ReportData) []string {
	return []string{b.printer.Sprintf("Averages are per enrolled student. %d faculties reported activity.", len(data.Faculties))}
}

func (b *ReportBuilder) eventNarrative(data ReportData) []string {
	return []string{"Attendance rate is attended over all registrations. " +
		"Average rating is the mean feedback score of attendees who left feedback."}
}

func (b *ReportBuilder) rewardNarrative(data ReportData) []string {
	spent := 0
	for _, r := range data.Rewards {
		spent += r.PointsSpent
	}
	out := []string{b.printer.Sprintf("Redemptions consumed %d points. Redemption rate is measured against initial stock.", spent)}
	if data.Faculty != "" {
		out = append(out, "Reward figures cover the whole programme, not only "+data.Faculty+".")
	}
	return out
}

// Highlights names the leading entry of each dimension. Ties go to the lowest
// goal number, faculty name, event id or reward id.
func (b *ReportBuilder) Highlights(data ReportData) []string {
	out := make([]string, 0, 4)

	var topSDG *models.SDGSummary
	for i := range data.SDG {
		s := &data.SDG[i]
		if s.Participants == 0 {
			continue
		}
		if topSDG == nil || s.Participants > topSDG.Participants ||
			(s.Participants == topSDG.Participants && s.Number < topSDG.Number) {
			topSDG = s
		}
	}
	if topSDG != nil {
		out = append(out, b.printer.Sprintf("SDG %d %s drew the most participants (%d) with %d points.",
			topSDG.Number, topSDG.Name, topSDG.Participants, topSDG.TotalPoints))
	}

	var topFaculty *models.FacultySummary
	for i := range data.Faculties {
		f := &data.Faculties[i]
		if topFaculty == nil || f.TotalPoints > topFaculty.TotalPoints ||
			(f.TotalPoints == topFaculty.TotalPoints && f.Faculty < topFaculty.Faculty) {
			topFaculty = f
		}
	}
	if topFaculty != nil && topFaculty.TotalPoints > 0 {
		out = append(out, b.printer.Sprintf("%s led faculties with %d points (%s per student).",
			topFaculty.Faculty, topFaculty.TotalPoints, export.FormatDecimal(topFaculty.AveragePoints)))
	}

	var topEvent *models.EventSummary
	for i := range data.Events {
		e := &data.Events[i]
		if e.Registered == 0 {
			continue
		}
		if topEvent == nil || e.AttendanceRate > topEvent.AttendanceRate ||
			(e.AttendanceRate == topEvent.AttendanceRate && e.EventID < topEvent.EventID) {
			topEvent = e
		}
	}
	if topEvent != nil {
		out = append(out, b.printer.Sprintf("%s had the best attendance at %s%% of %d registrations.",
			topEvent.Title, export.FormatPercent(topEvent.AttendanceRate), topEvent.Registered))
	}

	var topReward *models.RewardSummary
	for i := range data.Rewards {
		r := &data.Rewards[i]
		if r.Redemptions == 0 {
			continue
		}
		if topReward == nil || r.Redemptions > topReward.Redemptions ||
			(r.Redemptions == topReward.Redemptions && r.RewardID < topReward.RewardID) {
			topReward = r
		}
	}
	if topReward != nil {
		out = append(out, b.printer.Sprintf("%s was the most redeemed reward with %d redemptions.",
			topReward.Name, topReward.Redemptions))
	}
	return out
}
