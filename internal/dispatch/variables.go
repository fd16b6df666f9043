package dispatch

import (
	"fmt"
	"strconv"
	"time"

	"reminder-service/internal/models"
)

const (
	defaultUserName = "Usuário"
	defaultPriority = "normal"
	dueDateToday    = "hoje"
	dateLayout      = "02/01/2006"
)

// buildVariables assembles the variable map for template rendering. Stored
// template variables come first, then the computed values on top; resolved
// task context wins over stored values, stored values win over literals.
func buildVariables(n models.Notification, taskCtx models.TaskContext, recipient models.Recipient, esc Escalation, appURL string) map[string]string {
	vars := make(map[string]string, len(n.TemplateVariables)+10)
	for k, v := range n.TemplateVariables {
		vars[k] = v
	}

	if recipient.Name != "" {
		vars["user_name"] = recipient.Name
	} else if vars["user_name"] == "" {
		vars["user_name"] = defaultUserName
	}

	switch {
	case taskCtx.TaskTitle != "":
		vars["task_title"] = taskCtx.TaskTitle
	case vars["task_title"] != "":
		// keep the stored value
	default:
		vars["task_title"] = n.Title
	}

	vars["task_description"] = n.Message

	switch {
	case taskCtx.TaskPriority != "":
		vars["task_priority"] = taskCtx.TaskPriority
	case payloadString(n.Payload, "priority") != "":
		vars["task_priority"] = payloadString(n.Payload, "priority")
	case vars["task_priority"] == "":
		vars["task_priority"] = defaultPriority
	}

	switch {
	case taskCtx.TaskDueDate != nil:
		vars["due_date"] = taskCtx.TaskDueDate.Format(dateLayout)
	case !n.ScheduledAt.IsZero():
		vars["due_date"] = n.ScheduledAt.Format(dateLayout)
	default:
		vars["due_date"] = dueDateToday
	}

	if taskCtx.PlantName != "" {
		vars["plant_name"] = taskCtx.PlantName
	}
	if taskCtx.TaskCategory != "" {
		vars["task_category"] = taskCtx.TaskCategory
	}
	if taskCtx.GardenName != "" {
		vars["garden_name"] = taskCtx.GardenName
	}

	if esc.DaysOverdue > 0 {
		vars["days_overdue"] = strconv.Itoa(esc.DaysOverdue)
	}
	vars["app_url"] = appURL

	return vars
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; drop the fraction when whole
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprintf("%v", val)
	case time.Time:
		return val.Format(dateLayout)
	}
	return ""
}
