package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mewlark/interest-bridge/internal/biz/domain"
	"github.com/mewlark/interest-bridge/internal/infra/feishu"
	"github.com/mewlark/interest-bridge/internal/service"
)

// FeishuServer routes Feishu messages into the pipeline service
type FeishuServer struct {
	feishuClient *feishu.Client
	pipeline     *service.PipelineService

	// Message deduplication cache
	seenMsgsMu sync.RWMutex
	seenMsgs   map[string]time.Time // msgID -> timestamp
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(feishuClient *feishu.Client, pipeline *service.PipelineService) *FeishuServer {
	s := &FeishuServer{
		feishuClient: feishuClient,
		pipeline:     pipeline,
		seenMsgs:     make(map[string]time.Time),
	}

	pipeline.SetReplyCallback(s.sendReply)

	return s
}

// Start starts the server
func (s *FeishuServer) Start() error {
	s.feishuClient.OnMessage(s.handleMessage)
	return s.feishuClient.Start()
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.feishuClient.Stop()
}

// handleMessage handles Feishu messages
func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	// Message deduplication: the ws SDK redelivers on slow ACKs
	if s.isMessageSeen(msg.MsgID) {
		fmt.Printf("[Server] Duplicate message ignored: %s\n", msg.MsgID)
		return
	}
	s.markMessageSeen(msg.MsgID)

	chatType := domain.ChatTypeP2P
	if msg.ChatType == "group" {
		chatType = domain.ChatTypeGroup
	}

	senderID := ""
	senderName := ""
	if msg.Sender != nil {
		senderID = msg.Sender.SenderID
		senderName = msg.Sender.SenderName
	}

	req := &service.MessageRequest{
		ChatID:      msg.ChatID,
		Content:     msg.Content,
		SenderID:    senderID,
		SenderName:  senderName,
		ChatType:    chatType,
		MentionsBot: msg.MentionsBot,
	}

	if err := s.pipeline.HandleMessage(context.Background(), req); err != nil {
		fmt.Printf("[Server] Handle message error: %v\n", err)
	}
}

// sendReply sends a reply
func (s *FeishuServer) sendReply(chatID, text string) {
	if err := s.feishuClient.SendText(chatID, text); err != nil {
		fmt.Printf("[Server] Failed to send reply: %v\n", err)
	}
}

// isMessageSeen checks if a message has been processed
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.RLock()
	defer s.seenMsgsMu.RUnlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	// Drop records older than 5 minutes to bound the cache
	cutoff := time.Now().Add(-5 * time.Minute)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
