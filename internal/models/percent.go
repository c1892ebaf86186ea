package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Percent 折扣百分比（保留 2 位小数）
type Percent struct {
	decimal.Decimal
}

// NewPercent 从 decimal 创建折扣值
func NewPercent(value decimal.Decimal) Percent {
	return Percent{Decimal: value.Round(2)}
}

// NewPercentFromInt 从整数创建折扣值
func NewPercentFromInt(value int64) Percent {
	return Percent{Decimal: decimal.NewFromInt(value)}
}

// InRange 判断是否落在 [min, max] 区间
func (p Percent) InRange(min, max int64) bool {
	return p.GreaterThanOrEqual(decimal.NewFromInt(min)) && p.LessThanOrEqual(decimal.NewFromInt(max))
}

// MarshalJSON 统一输出字符串，避免浮点误差
func (p Percent) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON 解析折扣（字符串或数字）
func (p *Percent) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		p.Decimal = d.Round(2)
		return nil
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	p.Decimal = d.Round(2)
	return nil
}

// Value 用于数据库写入
func (p Percent) Value() (driver.Value, error) {
	return p.Decimal.Round(2).Value()
}

// Scan 用于数据库读取
func (p *Percent) Scan(value interface{}) error {
	if err := p.Decimal.Scan(value); err != nil {
		return err
	}
	p.Decimal = p.Decimal.Round(2)
	return nil
}

// String 去掉多余的小数位，例如 "15" 或 "12.5"
func (p Percent) String() string {
	return p.Decimal.Round(2).String()
}
