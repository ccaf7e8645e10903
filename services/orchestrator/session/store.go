// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session keeps per-session conversation history in memory for the
// lifetime of the process. History is append-only per session; an unseen
// session id materializes an empty session on first touch.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
)

// Info summarizes one session for the admin endpoints.
type Info struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type record struct {
	messages  []datatypes.Message
	createdAt time.Time
	updatedAt time.Time
}

// Store is the in-memory session history store.
//
// Thread Safety: individual appends and reads are serialized, but whole-turn
// ordering across concurrent requests for the same session is the caller's
// responsibility; the service assumes one client per session.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*record
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*record)}
}

// Append adds a message to the session, creating the session if needed.
func (s *Store) Append(sessionID string, msg datatypes.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec, ok := s.sessions[sessionID]
	if !ok {
		rec = &record{createdAt: now}
		s.sessions[sessionID] = rec
	}
	rec.messages = append(rec.messages, msg)
	rec.updatedAt = now
}

// History returns a copy of the session's messages in append order. Unknown
// sessions yield an empty history, not an error.
func (s *Store) History(sessionID string) []datatypes.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return []datatypes.Message{}
	}
	out := make([]datatypes.Message, len(rec.messages))
	copy(out, rec.messages)
	return out
}

// Sessions lists all sessions sorted by id.
func (s *Store) Sessions() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.sessions))
	for id, rec := range s.sessions {
		infos = append(infos, Info{
			SessionID:    id,
			MessageCount: len(rec.messages),
			CreatedAt:    rec.createdAt,
			UpdatedAt:    rec.updatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })
	return infos
}

// Delete removes a session and reports whether it existed.
func (s *Store) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return ok
}
