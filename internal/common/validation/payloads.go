package validation

// ChatPayload is an ingested text chat.
var ChatPayload = MustCompile("chat_payload", `{
  "type": "object",
  "required": ["turns"],
  "properties": {
    "channel": {"type": "string", "enum": ["chat"]},
    "conversation_id": {"type": ["string", "null"], "maxLength": 64},
    "turns": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["speaker_id", "text"],
        "properties": {
          "speaker_id": {"type": "string", "minLength": 1},
          "text": {"type": "string"},
          "timestamp": {"type": ["string", "null"], "format": "date-time"}
        }
      }
    }
  }
}`)

// VoicePayload is an ingested call; both audio_url and transcript are optional.
var VoicePayload = MustCompile("voice_payload", `{
  "type": "object",
  "properties": {
    "channel": {"type": "string", "enum": ["voice"]},
    "conversation_id": {"type": ["string", "null"], "maxLength": 64},
    "audio_url": {"type": ["string", "null"]},
    "transcript": {"type": ["string", "null"]}
  }
}`)

// MessagePayload appends one user message to a conversation or live session.
var MessagePayload = MustCompile("message_payload", `{
  "type": "object",
  "required": ["text"],
  "properties": {
    "text": {"type": "string", "minLength": 1, "maxLength": 4000},
    "speaker_id": {"type": "string"}
  }
}`)

// HumanActionPayload is a manual correction from a sales agent.
var HumanActionPayload = MustCompile("human_action_payload", `{
  "type": "object",
  "properties": {
    "corrected_intent": {
      "type": ["string", "null"],
      "enum": ["new_project_sales", "price_estimation", "general_services_query", "complaint_issue",
               "suggestion_feedback", "career_hiring", "unknown_chitchat", null]
    },
    "filled_slots": {"type": ["object", "null"]},
    "action": {"type": "string", "enum": ["close", "convert", "none"]},
    "notes": {"type": ["string", "null"]}
  }
}`)

// QuotePayload is an admin submitting a price for a quotation request.
var QuotePayload = MustCompile("quote_payload", `{
  "type": "object",
  "required": ["amount", "max_discount_pct"],
  "properties": {
    "amount": {"type": "number", "minimum": 0},
    "max_discount_pct": {"type": "number", "minimum": 0, "maximum": 100}
  }
}`)

// ConversationJob is the variable set every conversation-scoped worker job carries.
var ConversationJob = MustCompile("conversation_job", `{
  "type": "object",
  "required": ["conversationId"],
  "properties": {
    "conversationId": {"type": "string", "minLength": 1, "maxLength": 64}
  }
}`)

// MessageJob appends one user message from a workflow.
var MessageJob = MustCompile("message_job", `{
  "type": "object",
  "required": ["conversationId", "message"],
  "properties": {
    "conversationId": {"type": "string", "minLength": 1, "maxLength": 64},
    "message": {"type": "string", "minLength": 1, "maxLength": 4000}
  }
}`)

// LeadSearchJob filters the lead index from a workflow; every field is optional.
var LeadSearchJob = MustCompile("lead_search_job", `{
  "type": "object",
  "properties": {
    "band": {"type": ["string", "null"], "enum": ["cold", "warm", "hot", "", null]},
    "intent": {"type": ["string", "null"]},
    "minScore": {"type": ["number", "null"], "minimum": 0, "maximum": 100},
    "text": {"type": ["string", "null"]},
    "from": {"type": ["integer", "null"], "minimum": 0},
    "size": {"type": ["integer", "null"], "minimum": 0, "maximum": 100}
  }
}`)
