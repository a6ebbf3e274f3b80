package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umoja-coop/shares-api/internal/domain"
)

const testSecret = "test-secret"

func testMember(role domain.Role) *domain.Member {
	return &domain.Member{
		ID:    uuid.New(),
		Email: "jane@coop.test",
		Role:  role,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	member := testMember(domain.RoleAdmin)

	token, err := GenerateToken(member, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	p, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, member.ID, p.ID)
	assert.Equal(t, member.Email, p.Email)
	assert.Equal(t, domain.RoleAdmin, p.Role)
	assert.True(t, p.IsAdmin())
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken(testMember(domain.RoleMember), testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(testMember(domain.RoleMember), testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestValidateTokenRejectsUnknownRole(t *testing.T) {
	member := testMember("superuser")
	token, err := GenerateToken(member, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}
