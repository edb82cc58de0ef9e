package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/progression"
	"github.com/cory-johannsen/arena/internal/storage"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"wrapped not found", fmt.Errorf("loading character x: %w", storage.ErrCharacterNotFound), http.StatusNotFound, "character_not_found"},
		{"joined persistence failure", errors.Join(combat.ErrNoEnemy, errors.New("db down")), http.StatusConflict, "no_enemy"},
		{"invalid stat", progression.ErrInvalidStatKind, http.StatusUnprocessableEntity, "invalid_stat_kind"},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
