package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/biz/repo"
	"github.com/mewlark/interest-bridge/internal/biz/usecase"
)

// commandPrefix starts the in-chat admin command group
const commandPrefix = "sir"

// PersonaAdmin is the persona surface the command group needs
type PersonaAdmin interface {
	repo.PersonaRepo
	Personas() []string
}

// PipelineService routes inbound messages through the gating pipeline and
// on to the responder
type PipelineService struct {
	analyzer  *usecase.InterestAnalyzer
	recorder  *usecase.ReplyRecorder
	admin     *usecase.AdminView
	responder repo.ResponderRepo
	personas  PersonaAdmin

	systemPrompt string

	// onReply delivers the outbound text back to the transport
	onReply func(chatID, text string)
}

// NewPipelineService creates the pipeline service. responder may be nil,
// in which case gated messages produce no outbound reply.
func NewPipelineService(
	analyzer *usecase.InterestAnalyzer,
	recorder *usecase.ReplyRecorder,
	admin *usecase.AdminView,
	responder repo.ResponderRepo,
	personas PersonaAdmin,
	systemPrompt string,
) *PipelineService {
	return &PipelineService{
		analyzer:     analyzer,
		recorder:     recorder,
		admin:        admin,
		responder:    responder,
		personas:     personas,
		systemPrompt: systemPrompt,
	}
}

// SetReplyCallback sets the outbound reply callback
func (s *PipelineService) SetReplyCallback(callback func(chatID, text string)) {
	s.onReply = callback
}

// MessageRequest represents one inbound chat message
type MessageRequest struct {
	ChatID      string
	Content     string
	SenderID    string
	SenderName  string
	ChatType    domain.ChatType
	MentionsBot bool
}

// HandleMessage processes one inbound message: admin commands are answered
// directly, everything else runs the analyze -> respond -> record flow
func (s *PipelineService) HandleMessage(ctx context.Context, req *MessageRequest) error {
	if reply, ok := s.handleCommand(ctx, req); ok {
		s.reply(req.ChatID, reply)
		return nil
	}

	pipelineReq := &usecase.Request{
		SessionID:     req.ChatID,
		SenderID:      req.SenderID,
		SenderName:    req.SenderName,
		Platform:      "feishu",
		DirectMention: req.MentionsBot,
		Prompt:        req.Content,
		SystemPrompt:  s.systemPrompt,
	}
	if req.ChatType == domain.ChatTypeGroup {
		pipelineReq.GroupID = req.ChatID
	}

	s.analyzer.Analyze(ctx, pipelineReq)

	if pipelineReq.Halted {
		fmt.Printf("[Service] Reply suppressed: %s\n", pipelineReq.HaltReason)
		return nil
	}
	if s.responder == nil {
		return nil
	}

	// A bound persona drives the reply, not just the analysis
	systemPrompt := s.systemPrompt
	if s.personas != nil {
		prompt, err := s.personas.PersonaPrompt(ctx, req.ChatID)
		if err != nil {
			fmt.Printf("[Service] Failed to resolve persona: %v\n", err)
		} else if prompt != "" {
			systemPrompt = prompt
		}
	}

	reply, err := s.responder.Reply(ctx, systemPrompt, pipelineReq.Prompt)
	if err != nil {
		return fmt.Errorf("failed to generate reply: %w", err)
	}

	s.recorder.Record(pipelineReq, reply)
	s.reply(req.ChatID, reply)
	return nil
}

// handleCommand dispatches the "sir" admin command group. Returns the
// response text and whether the message was a command.
func (s *PipelineService) handleCommand(ctx context.Context, req *MessageRequest) (string, bool) {
	fields := strings.Fields(req.Content)
	if len(fields) == 0 || fields[0] != commandPrefix {
		return "", false
	}
	if len(fields) == 1 {
		return "Usage: sir view | sir clear | sir persona [name|off]", true
	}

	switch fields[1] {
	case "view":
		return s.admin.View(req.ChatID), true
	case "clear":
		return s.admin.Clear(req.ChatID), true
	case "persona":
		return s.handlePersonaCommand(ctx, req.ChatID, fields[2:]), true
	default:
		return fmt.Sprintf("Unknown command: %s", fields[1]), true
	}
}

func (s *PipelineService) handlePersonaCommand(ctx context.Context, chatID string, args []string) string {
	if s.personas == nil {
		return "Persona bindings are not configured."
	}

	if len(args) == 0 {
		name, err := s.personas.Binding(ctx, chatID)
		if err != nil {
			return fmt.Sprintf("Failed to look up persona: %v", err)
		}
		if name == "" {
			return fmt.Sprintf("No persona bound. Available: %s", strings.Join(s.personas.Personas(), ", "))
		}
		return fmt.Sprintf("Current persona: %s", name)
	}

	if args[0] == "off" {
		if err := s.personas.Unbind(ctx, chatID); err != nil {
			return fmt.Sprintf("Failed to unbind persona: %v", err)
		}
		return "Persona binding removed."
	}

	if err := s.personas.Bind(ctx, chatID, args[0]); err != nil {
		return fmt.Sprintf("Failed to bind persona: %v", err)
	}
	return fmt.Sprintf("Persona set to: %s", args[0])
}

func (s *PipelineService) reply(chatID, text string) {
	if s.onReply == nil || text == "" {
		return
	}
	s.onReply(chatID, text)
}
