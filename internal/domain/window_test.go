package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowContains(t *testing.T) {
	winter := Window{Start: MonthDay{time.December, 1}, End: MonthDay{time.February, 28}}
	spring := Window{Start: MonthDay{time.March, 1}, End: MonthDay{time.May, 31}}

	tests := []struct {
		name     string
		window   Window
		md       MonthDay
		expected bool
	}{
		{"wrap contains january", winter, MonthDay{time.January, 15}, true},
		{"wrap contains new year's eve", winter, MonthDay{time.December, 31}, true},
		{"wrap contains start bound", winter, MonthDay{time.December, 1}, true},
		{"wrap contains end bound", winter, MonthDay{time.February, 28}, true},
		{"wrap excludes june", winter, MonthDay{time.June, 1}, false},
		{"wrap excludes march", winter, MonthDay{time.March, 1}, false},
		{"plain contains april", spring, MonthDay{time.April, 15}, true},
		{"plain excludes june", spring, MonthDay{time.June, 1}, false},
		{"plain excludes late february", spring, MonthDay{time.February, 28}, false},
		{"plain contains bounds", spring, MonthDay{time.May, 31}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.window.Contains(tt.md))
		})
	}
}

func TestWindowWraps(t *testing.T) {
	assert.True(t, Window{Start: MonthDay{time.November, 1}, End: MonthDay{time.February, 28}}.Wraps())
	assert.False(t, Window{Start: MonthDay{time.March, 1}, End: MonthDay{time.May, 31}}.Wraps())
}

func TestNewWindow(t *testing.T) {
	t.Run("year ignored", func(t *testing.T) {
		w, ok := NewWindow(date(2022, time.November, 1), date(2023, time.February, 28))
		assert.True(t, ok)
		assert.True(t, w.Contains(MonthDay{time.January, 10}))
	})

	t.Run("missing bound", func(t *testing.T) {
		_, ok := NewWindow(nil, date(2023, time.February, 28))
		assert.False(t, ok)
	})
}
