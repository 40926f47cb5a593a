// Package pipeline provides the business boundary for frontdesk's inbound
// support-email processing. It defines the Engine (per-message orchestration
// state machine), the Run record threaded through the pipeline steps, the
// escalation decision, and the collaborator interfaces (completion,
// similarity search, mailbox send, conversation log).
package pipeline
