package tools

import "brightcall/services/speech"

// ToolCheckAvailability and ToolBookDemo are the only function names exposed
// to the speech model.
const (
	ToolCheckAvailability = "check_availability"
	ToolBookDemo          = "book_demo"
)

// Manifest returns the tool declarations advertised in the session update.
func Manifest() []speech.Tool {
	return []speech.Tool{
		{
			Type:        "function",
			Name:        ToolCheckAvailability,
			Description: "Check which demo slots are open for a given day. Accepts 'today', 'tomorrow', or a weekday name.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"when": map[string]interface{}{
						"type":        "string",
						"description": "The day to check: 'today', 'tomorrow', or a weekday name like 'friday'.",
					},
				},
				"required": []string{"when"},
			},
		},
		{
			Type:        "function",
			Name:        ToolBookDemo,
			Description: "Book a product demo once the caller has confirmed a date and time slot.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"organization": map[string]interface{}{
						"type":        "string",
						"description": "The caller's company or organization name.",
					},
					"contact": map[string]interface{}{
						"type":        "string",
						"description": "Full name of the contact person.",
					},
					"phone": map[string]interface{}{
						"type":        "string",
						"description": "Contact phone number.",
					},
					"email": map[string]interface{}{
						"type":        "string",
						"description": "Contact email address, if provided.",
					},
					"datetime": map[string]interface{}{
						"type":        "string",
						"description": "The confirmed date and time slot, e.g. 'Friday, January 9, 2026 at 10:00 AM'.",
					},
					"notes": map[string]interface{}{
						"type":        "string",
						"description": "Anything else the caller mentioned that sales should know.",
					},
				},
				"required": []string{"organization", "contact", "phone", "datetime"},
			},
		},
	}
}
