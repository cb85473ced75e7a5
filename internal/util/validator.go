package util

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const weekLayout = "2006-01-02"

// 份量上限，防止误输入导致数量爆炸
const maxPortions = 100

var maxQuantity = decimal.NewFromInt(1000000)

// ParseWeekStart 验证日期格式（必须为 YYYY-MM-DD），并归一到该周的周一
func ParseWeekStart(dateStr string) (string, error) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return "", fmt.Errorf("week start is empty")
	}
	d, err := time.Parse(weekLayout, dateStr)
	if err != nil {
		return "", fmt.Errorf("invalid date format: %w", err)
	}
	// time.Weekday: Sunday=0，周一为一周开始
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset).Format(weekLayout), nil
}

// ValidateIngredientName 食材名不能为空且长度合理
func ValidateIngredientName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("ingredient name is empty")
	}
	if utf8.RuneCountInString(name) > 255 {
		return fmt.Errorf("ingredient name too long, max 255 characters")
	}
	return nil
}

// ValidateQuantity 数量必须为正数且不超过上限
func ValidateQuantity(q decimal.Decimal) error {
	if !q.IsPositive() {
		return fmt.Errorf("quantity must be positive, got %s", q.String())
	}
	if q.GreaterThanOrEqual(maxQuantity) {
		return fmt.Errorf("quantity too large, got %s", q.String())
	}
	return nil
}

// ValidateDay 0=周一 … 6=周日
func ValidateDay(day int) error {
	if day < 0 || day > 6 {
		return fmt.Errorf("day must be between 0 and 6, got %d", day)
	}
	return nil
}

// ValidatePeriod 只接受 midi / soir
func ValidatePeriod(period string) error {
	switch period {
	case "midi", "soir":
		return nil
	default:
		return fmt.Errorf("period must be midi or soir, got %q", period)
	}
}

// ValidatePortions 计划份量至少 1
func ValidatePortions(p int) error {
	if p < 1 || p > maxPortions {
		return fmt.Errorf("portions must be between 1 and %d, got %d", maxPortions, p)
	}
	return nil
}
