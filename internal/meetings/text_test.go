package meetings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescription(t *testing.T) {
	got := Description("Ivan", "Anna", "Sales")

	lines := strings.Split(got, "\n")
	assert.Equal(t, "Созвон раз в две недели", lines[0], "meetings recur every two weeks")
	assert.Contains(t, lines, "Руководитель: Ivan")
	assert.Contains(t, lines, "Владелец: Anna")
	assert.Contains(t, lines, "Отдел: Sales")
}
