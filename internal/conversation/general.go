package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/hospital-assistant/internal/booking"
	"github.com/wolfman30/hospital-assistant/internal/hospital"
	"github.com/wolfman30/hospital-assistant/internal/intent"
)

// FormatAnswer renders a general query answer as a result card.
func FormatAnswer(ans *hospital.QueryAnswer, lang string) booking.Reply {
	r := booking.Reply{Kind: booking.ReplyResult, Input: booking.InputNone, Flow: FlowGeneral}
	if ans == nil {
		r.Key, r.Text = MsgNoAnswer, text(MsgNoAnswer)
		return r
	}

	switch ans.Type {
	case hospital.QueryTimings:
		r.Key, r.Text = "hospital_timings", "🕒 Hospital Timings"
		r.Details = []booking.Detail{
			{Label: "🏥 OPD", Value: ans.OPD},
			{Label: "🚑 Emergency", Value: ans.Emergency},
			{Label: "👥 Visiting Hours", Value: ans.Visiting},
		}
	case hospital.QueryDoctors:
		r.Key, r.Text = "doctors_in", "👨‍⚕️ Doctors in "+ans.Department
		r.Details = doctorDetails(ans.Doctors, ans.Fees, lang)
	case hospital.QueryDepartments:
		r.Key, r.Text = "departments", "🏥 Departments"
		r.Details = itemDetails(ans.Departments)
	case hospital.QueryServices:
		r.Key, r.Text = "services", "🛠️ Services"
		r.Details = itemDetails(ans.Services)
	case hospital.QueryContact:
		r.Key, r.Text = "contact_info", "📞 Contact Information"
		r.Details = []booking.Detail{
			{Label: "🏥 Hospital Name", Value: ans.Name},
			{Label: "📍 Address", Value: ans.Address},
			{Label: "📞 Phone", Value: ans.Phone},
			{Label: "✉️ Email", Value: ans.Email},
			{Label: "🌐 Website", Value: ans.Website},
		}
	case hospital.QueryProcess:
		icon := "✅"
		switch ans.Action {
		case "cancel":
			icon = "❌"
		case "edit":
			icon = "✏️"
		}
		r.Key = "appointment_process"
		r.Text = fmt.Sprintf("%s Appointment Process (%s)", icon, ans.Action)
		for i, step := range ans.Steps {
			r.Details = append(r.Details, booking.Detail{Label: fmt.Sprintf("%d.", i+1), Value: step})
		}
	case hospital.QuerySymptom:
		r.Key, r.Text = "symptom_match", "🤒 Symptom Match"
		r.Details = append([]booking.Detail{
			{Label: "Your Symptom", Value: ans.Symptom},
			{Label: "👉 Recommended Department", Value: ans.Department},
		}, doctorDetails(ans.Doctors, ans.Fees, lang)...)
	case hospital.QueryText:
		r.Key, r.Text = "answer", ans.Answer
	default:
		r.Key, r.Text = MsgNoAnswer, text(MsgNoAnswer)
	}
	return r
}

func doctorDetails(docs []hospital.QueryDoctor, deptFees hospital.FlexString, lang string) []booking.Detail {
	out := make([]booking.Detail, 0, len(docs))
	for _, d := range docs {
		qual := d.Qualification
		if qual == "" {
			qual = "-"
		}
		exp := d.Experience.String()
		if exp == "" {
			exp = "N/A"
		}
		fees := d.Fees.String()
		if fees == "" {
			fees = deptFees.String()
		}
		if fees == "" {
			fees = "-"
		}
		parts := []string{"🎓 " + qual, "💼 Experience: " + exp}
		if timings := formatTimeRange(d.Timings, lang); timings != "" {
			parts = append(parts, "🕒 "+timings)
		}
		parts = append(parts, "💰 Fees: ₹"+fees)
		out = append(out, booking.Detail{Label: d.Name, Value: strings.Join(parts, " | ")})
	}
	return out
}

func itemDetails(items []hospital.QueryItem) []booking.Detail {
	out := make([]booking.Detail, 0, len(items))
	for _, it := range items {
		value := it.Description
		if value == "" {
			value = "-"
		}
		out = append(out, booking.Detail{Label: it.Name, Value: value})
	}
	return out
}

// formatTimeRange renders "09:00-17:00" style ranges on a 12-hour clock,
// leaving unparseable parts as given.
func formatTimeRange(raw, lang string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "-")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if hhmm, ok := intent.ParseTime(p); ok {
			if label := intent.FormatTimeDisplay(hhmm, lang); label != "" {
				p = label
			}
		}
		parts[i] = p
	}
	return strings.Join(parts, " - ")
}
