package appointments

import "fmt"

const (
	MsgAskKey           = "enter_appt_id_or_phone"
	MsgNotFound         = "no_appt_found"
	MsgLookupFailed     = "error_loading_appointment"
	MsgDetails          = "your_appt_details"
	MsgWhatNext         = "what_you_want"
	MsgEditAppointment  = "edit_appt"
	MsgCancelAppoint    = "cancel_appt"
	MsgEditNotAllowed   = "edit_not_allowed"
	MsgChooseField      = "click_field_to_edit"
	MsgEnterName        = "enter_new_name"
	MsgEnterPhone       = "enter_new_phone"
	MsgSelectDepartment = "select_department"
	MsgSelectDoctor     = "select_doctor"
	MsgSelectDate       = "select_date"
	MsgSelectTime       = "select_time"
	MsgNoDays           = "no_available_days"
	MsgNoSlots          = "no_slots"
	MsgDateUnavailable  = "date_not_available"
	MsgSlotUnavailable  = "slot_not_available"
	MsgInvalidOption    = "invalid_option"
	MsgFetchFailed      = "error_fetch_data"
	MsgConfirmChanges   = "confirm_changes"
	MsgUpdateSuccess    = "update_success"
	MsgUpdateFailed     = "update_failed"
	MsgConfirmCancel    = "confirm_cancel"
	MsgCancelSuccess    = "cancel_success"
	MsgCancelNotFound   = "cancel_not_found"
	MsgCancelAborted    = "cancel_aborted"
	MsgCancelFailed     = "cancel_failed"
	MsgDownloadSlip     = "download_slip"
	MsgMainMenu         = "main_menu"
	MsgGoGeneral        = "go_general"
	MsgTip              = "tip"

	LabelID         = "appt_id"
	LabelName       = "name"
	LabelPhone      = "phone"
	LabelDepartment = "department"
	LabelDoctor     = "doctor"
	LabelDate       = "date"
	LabelTime       = "time"
	LabelFees       = "fees"
	LabelStatus     = "status"
)

var catalog = map[string]string{
	MsgAskKey:           "Please enter your Appointment ID or registered phone number:",
	MsgNotFound:         "No appointment found.",
	MsgLookupFailed:     "❌ Error loading appointment data. Please try again.",
	MsgDetails:          "📋 Your Appointment Details",
	MsgWhatNext:         "What do you want to do?",
	MsgEditAppointment:  "Edit Appointment",
	MsgCancelAppoint:    "Cancel Appointment",
	MsgEditNotAllowed:   "⚠️ You cannot edit appointments within %d hours of scheduled time.",
	MsgChooseField:      "Click a field to edit:",
	MsgEnterName:        "Enter new full name:",
	MsgEnterPhone:       "Enter new phone number:",
	MsgSelectDepartment: "Select a department:",
	MsgSelectDoctor:     "Select a doctor:",
	MsgSelectDate:       "Select a date for your appointment:",
	MsgSelectTime:       "Select a time slot:",
	MsgNoDays:           "No available days for this doctor.",
	MsgNoSlots:          "No slots available for this date. Please choose another date.",
	MsgDateUnavailable:  "That date is not available for this doctor. Please choose another date.",
	MsgSlotUnavailable:  "That time slot is not available. Please select another time slot.",
	MsgInvalidOption:    "Please choose one of the options.",
	MsgFetchFailed:      "❌ Error loading data. Please try again.",
	MsgConfirmChanges:   "Confirm changes?",
	MsgUpdateSuccess:    "✅ Appointment updated successfully!",
	MsgUpdateFailed:     "❌ Failed to update appointment. Please try again.",
	MsgConfirmCancel:    "Are you sure you want to cancel?",
	MsgCancelSuccess:    "❌ Appointment cancelled successfully.",
	MsgCancelNotFound:   "⚠️ Appointment not found or already deleted.",
	MsgCancelAborted:    "⚠️ Cancel aborted.",
	MsgCancelFailed:     "⚠️ Failed to cancel appointment.",
	MsgDownloadSlip:     "Download Slip",
	MsgMainMenu:         "Back to Main Menu",
	MsgGoGeneral:        "ℹ️ If you have questions, go to main menu and click on General Query.",
	MsgTip:              "💡 Health Tip: Take short breaks from screens to protect your eyes.",

	LabelID:         "Appointment ID",
	LabelName:       "Name",
	LabelPhone:      "Phone",
	LabelDepartment: "Department",
	LabelDoctor:     "Doctor",
	LabelDate:       "Date",
	LabelTime:       "Time",
	LabelFees:       "Fees",
	LabelStatus:     "Status",
}

// Text returns the English text for key.
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
