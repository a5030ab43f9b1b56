package insights

import (
	"fmt"
	"strings"
)

const defaultLanguage = "en"

var supportedLanguages = []string{"en", "de", "vi"}

// normalizeLanguage maps a workspace language hint onto en, de or vi by
// case-insensitive prefix. Anything else is English.
func normalizeLanguage(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	for _, lang := range supportedLanguages {
		if strings.HasPrefix(value, lang) {
			return lang
		}
	}
	return defaultLanguage
}

type messageKey string

const (
	msgMissingCloseDate  messageKey = "missing_close_date"
	msgMissingNextStep   messageKey = "missing_next_step"
	msgMissingContact    messageKey = "missing_contact"
	msgMissingAmount     messageKey = "missing_amount"
	msgEmptyTimeline     messageKey = "empty_timeline"
	msgOpportunity       messageKey = "opportunity"
	msgNoActivity        messageKey = "no_activity"
	msgNextStepDefault   messageKey = "next_step_default"
	msgNextStepPlanned   messageKey = "next_step_planned"
	msgScheduleTask      messageKey = "schedule_task"
	msgScheduleTaskWhy   messageKey = "schedule_task_why"
	msgDraftMessage      messageKey = "draft_message"
	msgDraftMessageWhy   messageKey = "draft_message_why"
	msgMeetingAgenda     messageKey = "meeting_agenda"
	msgMeetingAgendaWhy  messageKey = "meeting_agenda_why"
	msgStageMove         messageKey = "stage_move"
	msgStageMoveWhy      messageKey = "stage_move_why"
	msgCloseDateSet      messageKey = "close_date_set"
	msgCloseDateSetWhy   messageKey = "close_date_set_why"
	msgCloseDateShift    messageKey = "close_date_shift"
	msgCloseDateShiftWhy messageKey = "close_date_shift_why"
	msgNoCommunication   messageKey = "no_communication"
	msgCommunication     messageKey = "communication"
)

var messages = map[string]map[messageKey]string{
	"en": {
		msgMissingCloseDate:  "Expected close date is not set",
		msgMissingNextStep:   "No upcoming task, call or meeting is planned",
		msgMissingContact:    "No contact is linked to the deal",
		msgMissingAmount:     "Deal amount is not set",
		msgEmptyTimeline:     "No activity has been recorded yet",
		msgOpportunity:       "Opportunity: %s",
		msgNoActivity:        "No activity recorded yet",
		msgNextStepDefault:   "Plan the next follow-up activity",
		msgNextStepPlanned:   "%s planned for %s",
		msgScheduleTask:      "Schedule a follow-up",
		msgScheduleTaskWhy:   "Nothing is planned for this deal yet.",
		msgDraftMessage:      "Send a follow-up message",
		msgDraftMessageWhy:   "There has been no recent contact with the customer.",
		msgMeetingAgenda:     "Prepare a meeting agenda",
		msgMeetingAgendaWhy:  "A structured meeting helps resolve the open points of this stage.",
		msgStageMove:         "Move the deal to %s",
		msgStageMoveWhy:      "The win probability is %d%%, which supports advancing the deal.",
		msgCloseDateSet:      "Set an expected close date",
		msgCloseDateSetWhy:   "The deal has no expected close date.",
		msgCloseDateShift:    "Update the expected close date to %s",
		msgCloseDateShiftWhy: "Comparable deals close around %s, which differs from the current date.",
		msgNoCommunication:   "No communication has been recorded yet.",
		msgCommunication:     "%d interactions recorded. Most recent: %s on %s.",
	},
	"de": {
		msgMissingCloseDate:  "Erwartetes Abschlussdatum fehlt",
		msgMissingNextStep:   "Keine anstehende Aufgabe, kein Anruf und kein Termin geplant",
		msgMissingContact:    "Kein Kontakt mit dem Deal verknüpft",
		msgMissingAmount:     "Deal-Betrag fehlt",
		msgEmptyTimeline:     "Noch keine Aktivität erfasst",
		msgOpportunity:       "Verkaufschance: %s",
		msgNoActivity:        "Noch keine Aktivität erfasst",
		msgNextStepDefault:   "Nächste Folgeaktivität planen",
		msgNextStepPlanned:   "%s geplant für %s",
		msgScheduleTask:      "Folgeaktivität planen",
		msgScheduleTaskWhy:   "Für diesen Deal ist noch nichts geplant.",
		msgDraftMessage:      "Nachfassnachricht senden",
		msgDraftMessageWhy:   "Es gab in letzter Zeit keinen Kontakt mit dem Kunden.",
		msgMeetingAgenda:     "Tagesordnung für ein Meeting vorbereiten",
		msgMeetingAgendaWhy:  "Ein strukturiertes Meeting hilft, die offenen Punkte dieser Phase zu klären.",
		msgStageMove:         "Deal nach %s verschieben",
		msgStageMoveWhy:      "Die Gewinnwahrscheinlichkeit liegt bei %d%% und spricht für den nächsten Schritt.",
		msgCloseDateSet:      "Erwartetes Abschlussdatum setzen",
		msgCloseDateSetWhy:   "Der Deal hat kein erwartetes Abschlussdatum.",
		msgCloseDateShift:    "Erwartetes Abschlussdatum auf %s ändern",
		msgCloseDateShiftWhy: "Vergleichbare Deals schließen um den %s ab, abweichend vom aktuellen Datum.",
		msgNoCommunication:   "Es wurde noch keine Kommunikation erfasst.",
		msgCommunication:     "%d Interaktionen erfasst. Zuletzt: %s am %s.",
	},
	"vi": {
		msgMissingCloseDate:  "Chưa đặt ngày dự kiến chốt",
		msgMissingNextStep:   "Chưa có nhiệm vụ, cuộc gọi hoặc cuộc họp sắp tới",
		msgMissingContact:    "Chưa liên kết liên hệ với giao dịch",
		msgMissingAmount:     "Chưa đặt giá trị giao dịch",
		msgEmptyTimeline:     "Chưa ghi nhận hoạt động nào",
		msgOpportunity:       "Cơ hội: %s",
		msgNoActivity:        "Chưa ghi nhận hoạt động nào",
		msgNextStepDefault:   "Lên kế hoạch cho hoạt động tiếp theo",
		msgNextStepPlanned:   "%s dự kiến vào %s",
		msgScheduleTask:      "Lên lịch theo dõi",
		msgScheduleTaskWhy:   "Giao dịch này chưa có kế hoạch nào.",
		msgDraftMessage:      "Gửi tin nhắn theo dõi",
		msgDraftMessageWhy:   "Gần đây chưa có liên lạc với khách hàng.",
		msgMeetingAgenda:     "Chuẩn bị chương trình cuộc họp",
		msgMeetingAgendaWhy:  "Một cuộc họp có cấu trúc giúp giải quyết các vấn đề còn mở của giai đoạn này.",
		msgStageMove:         "Chuyển giao dịch sang %s",
		msgStageMoveWhy:      "Xác suất thắng là %d%%, đủ để chuyển sang giai đoạn tiếp theo.",
		msgCloseDateSet:      "Đặt ngày dự kiến chốt",
		msgCloseDateSetWhy:   "Giao dịch chưa có ngày dự kiến chốt.",
		msgCloseDateShift:    "Cập nhật ngày dự kiến chốt thành %s",
		msgCloseDateShiftWhy: "Các giao dịch tương tự thường chốt vào khoảng %s, khác với ngày hiện tại.",
		msgNoCommunication:   "Chưa ghi nhận trao đổi nào.",
		msgCommunication:     "Đã ghi nhận %d tương tác. Gần nhất: %s vào %s.",
	},
}

// message formats a catalog entry, falling back to English.
func message(lang string, key messageKey, args ...any) string {
	text, ok := messages[lang][key]
	if !ok {
		text = messages[defaultLanguage][key]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func languageName(lang string) string {
	switch lang {
	case "de":
		return "German"
	case "vi":
		return "Vietnamese"
	default:
		return "English"
	}
}
