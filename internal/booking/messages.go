package booking

import (
	"fmt"

	"github.com/wolfman30/hospital-assistant/internal/intent"
)

// Message keys. Surfaces localize by key and fall back to the English text.
const (
	MsgAskName             = "booking_ask_name"
	MsgAskPhone            = "booking_ask_phone"
	MsgInvalidName         = "booking_invalid_name"
	MsgInvalidPhone        = "booking_invalid_phone"
	MsgSelectDepartment    = "booking_select_department"
	MsgSelectDoctor        = "booking_select_doctor"
	MsgSelectDate          = "booking_select_date"
	MsgSelectTime          = "booking_select_time_slot"
	MsgConfirm             = "booking_confirm_appointment"
	MsgNoDays              = "booking_no_available_days"
	MsgNoSlots             = "booking_no_available_slots"
	MsgDateUnavailable     = "booking_date_not_available"
	MsgSlotUnavailable     = "booking_slot_not_available"
	MsgSlotTaken           = "booking_slot_taken"
	MsgUnknownDepartment   = "booking_no_department_selected"
	MsgUnknownDoctor       = "booking_no_doctor_selected"
	MsgCancelled           = "booking_cancelled"
	MsgErrorConfirming     = "booking_error_confirming"
	MsgSuccess             = "booking_success"
	MsgAppointmentID       = "booking_appointment_id"
	MsgDownloadSlip        = "booking_download_slip"
	MsgMainMenu            = "menu_main"
	MsgEditInstruction     = "booking_edit_instruction"
	MsgHealthTip           = "health_tip"
	MsgFailedDepartments   = "booking_failed_load_departments"
	MsgFailedDoctors       = "booking_failed_load_doctors"
	MsgFailedDates         = "booking_failed_load_dates"
	MsgFailedSlots         = "booking_failed_load_slots"
	MsgGeneralQuestion     = "general_question"
	MsgGeneralQueryHint    = "general_query_hint"
	MsgProcessingShortcut  = "processing_direct_booking"
	MsgNameSet             = "name_set"
	MsgPhoneSet            = "phone_set"
	MsgNeedDetails         = "direct_booking_need_details"
	MsgDoctorNotFound      = "doctor_not_found"
	MsgDoctorFound         = "doctor_found"
	MsgTimeAvailable       = "time_available"
	MsgDateConfirmed       = "date_confirmed"
	MsgTimeNotAvailable    = "time_not_available"
	MsgAlternativeTimes    = "alternative_times"
	MsgInvalidTime         = "invalid_time"
	MsgChoiceYes           = "choice_yes"
	MsgChoiceNo            = "choice_no"
	MsgLabelName           = "booking_name"
	MsgLabelPhone          = "booking_phone"
	MsgLabelDepartment     = "booking_department"
	MsgLabelDoctor         = "booking_doctor"
	MsgLabelDate           = "booking_date"
	MsgLabelTime           = "booking_time"
	MsgShortcutCheckFailed = "time_check_error"
)

var catalog = map[string]string{
	MsgAskName:             "👤 Please enter your full name:",
	MsgAskPhone:            "📱 Please enter your 10-digit phone number:",
	MsgInvalidName:         "Invalid name. Please enter again.",
	MsgInvalidPhone:        "Invalid phone. Please enter again.",
	MsgSelectDepartment:    "🏥 Please select a department:",
	MsgSelectDoctor:        "👨‍⚕️ Please select a doctor:",
	MsgSelectDate:          "📅 Please select an available date:",
	MsgSelectTime:          "⏰ Please select an available time slot:",
	MsgConfirm:             "✅ Please confirm your appointment:",
	MsgNoDays:              "No available days for this doctor. Please select another doctor.",
	MsgNoSlots:             "No available time slots. Please select another date.",
	MsgDateUnavailable:     "That date is not available for this doctor. Please select an available date.",
	MsgSlotUnavailable:     "That time slot is not available. Please select another time slot.",
	MsgSlotTaken:           "That time slot was just booked. Please select another time slot.",
	MsgUnknownDepartment:   "Please select a department first.",
	MsgUnknownDoctor:       "Please select a doctor first.",
	MsgCancelled:           "Booking cancelled.",
	MsgErrorConfirming:     "Error confirming appointment.",
	MsgSuccess:             "✅ Your appointment successfully booked!",
	MsgAppointmentID:       "Appointment ID: %s",
	MsgDownloadSlip:        "Download Slip",
	MsgMainMenu:            "Main Menu",
	MsgEditInstruction:     "ℹ️ If you want to edit this appointment, open the Main Menu and go to My Appointments.",
	MsgFailedDepartments:   "Failed to load departments. Please try again.",
	MsgFailedDoctors:       "Failed to load doctors. Please try again.",
	MsgFailedDates:         "Failed to load available dates. Please try again.",
	MsgFailedSlots:         "Failed to load time slots. Please try again.",
	MsgGeneralQuestion:     "🤖 " + intent.GeneralQuestionNotice,
	MsgGeneralQueryHint:    `💡 Click on "General Query" in the main menu for medical information.`,
	MsgProcessingShortcut:  "🎯 Processing your direct booking request...",
	MsgNameSet:             "✅ Name set: %s",
	MsgPhoneSet:            "✅ Phone set: %s",
	MsgNeedDetails:         "👤 For direct booking, I need your details first:",
	MsgDoctorNotFound:      "❌ Doctor not found. Available doctors:",
	MsgDoctorFound:         "✅ Doctor found: %s",
	MsgTimeAvailable:       "✅ Great! Time slot is available: %s",
	MsgDateConfirmed:       "📅 Date confirmed: %s",
	MsgTimeNotAvailable:    "❌ Requested time slot is not available.",
	MsgAlternativeTimes:    "💡 Here are the available time slots for %s:",
	MsgInvalidTime:         "⏰ Invalid time format. Please select from available slots:",
	MsgChoiceYes:           "Yes",
	MsgChoiceNo:            "No",
	MsgLabelName:           "Name",
	MsgLabelPhone:          "Phone",
	MsgLabelDepartment:     "Department",
	MsgLabelDoctor:         "Doctor",
	MsgLabelDate:           "Date",
	MsgLabelTime:           "Time",
	MsgShortcutCheckFailed: "❌ Error checking time slots. Please try again.",
}

var healthTips = []string{
	"💡 Health Tip: Stay hydrated. Drink 6-8 glasses of water daily.",
	"💡 Health Tip: Get at least 7-8 hours of quality sleep every night.",
	"💡 Health Tip: Eat more fresh fruits and vegetables for better immunity.",
	"💡 Health Tip: Exercise at least 30 minutes a day to keep your heart healthy.",
	"💡 Health Tip: Take short breaks from screens to protect your eyes.",
	"💡 Health Tip: Wash your hands regularly to prevent infections.",
	"💡 Health Tip: Manage stress with meditation or deep breathing exercises.",
}

// Text returns the English text for key, formatted with args. Unknown keys
// come back verbatim.
func Text(key string, args ...any) string {
	tmpl, ok := catalog[key]
	if !ok {
		return key
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}
