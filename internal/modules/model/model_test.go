package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileDigestDue(t *testing.T) {
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	hoursAgo := func(h int) *time.Time {
		t := now.Add(-time.Duration(h) * time.Hour)
		return &t
	}

	tests := []struct {
		name string
		p    Profile
		want bool
	}{
		{name: "disabled", p: Profile{DigestEnabled: false}, want: false},
		{name: "never sent", p: Profile{DigestEnabled: true, DigestFrequency: DigestDaily}, want: true},
		{name: "daily elapsed", p: Profile{DigestEnabled: true, DigestFrequency: DigestDaily, LastDigestAt: hoursAgo(24)}, want: true},
		{name: "daily too soon", p: Profile{DigestEnabled: true, DigestFrequency: DigestDaily, LastDigestAt: hoursAgo(23)}, want: false},
		{name: "weekly too soon", p: Profile{DigestEnabled: true, DigestFrequency: DigestWeekly, LastDigestAt: hoursAgo(48)}, want: false},
		{name: "weekly elapsed", p: Profile{DigestEnabled: true, DigestFrequency: DigestWeekly, LastDigestAt: hoursAgo(7 * 24)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.DigestDue(now))
		})
	}
}

func TestValidators(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("closed"))

	for _, p := range Priorities {
		assert.True(t, ValidPriority(p))
	}
	assert.False(t, ValidPriority("critical"))

	assert.True(t, ValidActivityType(ActivityScreen))
	assert.False(t, ValidActivityType("email"))
	assert.True(t, IsMedia(ActivityVideo))
	assert.False(t, IsMedia(ActivityComment))

	assert.True(t, ValidMemberRole(MemberRoleViewer))
	assert.False(t, ValidMemberRole("owner"))
	assert.True(t, ValidProfileRole(RoleEmployee))
	assert.True(t, ValidSource(SourceVoice))
}

func TestProfileIsStaff(t *testing.T) {
	assert.True(t, (&Profile{Role: RoleAdmin}).IsStaff())
	assert.True(t, (&Profile{Role: RoleEmployee}).IsStaff())
	assert.False(t, (&Profile{Role: RoleClient}).IsStaff())
}
