package eligibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/stake-plus/giveaways/src/shared/giveaway"
	"gorm.io/gorm"
)

// MemberLevel is a row of the leveling subsystem's table. Read only.
type MemberLevel struct {
	GuildID string `gorm:"primaryKey;size:64"`
	UserID  string `gorm:"primaryKey;size:64"`
	Level   int    `gorm:"not null;default:0"`
	XP      int64  `gorm:"not null;default:0"`
}

func (MemberLevel) TableName() string { return "member_levels" }

// MemberInvites is a row of the invite tracker's table. Read only.
type MemberInvites struct {
	GuildID string `gorm:"primaryKey;size:64"`
	UserID  string `gorm:"primaryKey;size:64"`
	Regular int    `gorm:"not null;default:0"`
	Bonus   int    `gorm:"not null;default:0"`
	Leaves  int    `gorm:"not null;default:0"`
}

func (MemberInvites) TableName() string { return "member_invites" }

// Net is regular + bonus - leaves.
func (m MemberInvites) Net() int { return m.Regular + m.Bonus - m.Leaves }

// DBLevels reads levels from MySQL.
type DBLevels struct {
	DB *gorm.DB
}

func (s DBLevels) Level(ctx context.Context, guildID, userID string) (int, error) {
	var row MemberLevel
	err := s.DB.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: member level: %v", giveaway.ErrUnreachable, err)
	}
	return row.Level, nil
}

// DBInvites reads invite counts from MySQL.
type DBInvites struct {
	DB *gorm.DB
}

func (s DBInvites) NetInvites(ctx context.Context, guildID, userID string) (int, error) {
	var row MemberInvites
	err := s.DB.WithContext(ctx).
		Where("guild_id = ? AND user_id = ?", guildID, userID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: member invites: %v", giveaway.ErrUnreachable, err)
	}
	return row.Net(), nil
}
