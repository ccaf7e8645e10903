// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"testing"

	"github.com/AleutianAI/SensorAgent/services/orchestrator/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndHistory(t *testing.T) {
	s := NewStore()
	s.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})
	s.Append("s1", datatypes.Message{Role: datatypes.RoleAssistant, Content: "hello"})

	h := s.History("s1")
	require.Len(t, h, 2)
	assert.Equal(t, datatypes.RoleUser, h[0].Role)
	assert.Equal(t, "hello", h[1].Content)
}

func TestHistoryUnknownSessionIsEmpty(t *testing.T) {
	s := NewStore()
	assert.Empty(t, s.History("missing"))
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})

	h := s.History("s1")
	h[0].Content = "mutated"
	assert.Equal(t, "hi", s.History("s1")[0].Content)
}

func TestSessionsSortedByID(t *testing.T) {
	s := NewStore()
	s.Append("beta", datatypes.Message{Role: datatypes.RoleUser, Content: "b"})
	s.Append("alpha", datatypes.Message{Role: datatypes.RoleUser, Content: "a"})
	s.Append("alpha", datatypes.Message{Role: datatypes.RoleAssistant, Content: "aa"})

	infos := s.Sessions()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].SessionID)
	assert.Equal(t, 2, infos[0].MessageCount)
	assert.Equal(t, "beta", infos[1].SessionID)
}

func TestDelete(t *testing.T) {
	s := NewStore()
	s.Append("s1", datatypes.Message{Role: datatypes.RoleUser, Content: "hi"})

	assert.True(t, s.Delete("s1"))
	assert.False(t, s.Delete("s1"))
	assert.Empty(t, s.History("s1"))
}
