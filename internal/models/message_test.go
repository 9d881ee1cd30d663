package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessagePreview(t *testing.T) {
	require.Equal(t, "hello", Message{Body: "hello"}.Preview())
	require.Equal(t, "hello", Message{Body: "hello", Attachment: "pic.png"}.Preview())
	require.Equal(t, "Image message", Message{Attachment: "pic.png"}.Preview())
	require.Equal(t, "", Message{}.Preview())
}
