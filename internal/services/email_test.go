package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstName(t *testing.T) {
	assert.Equal(t, "James", firstName("James Ashwin"))
	assert.Equal(t, "Madonna", firstName("Madonna"))
	assert.Equal(t, "", firstName(""))
}
