package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON 以文本存储的 JSON 对象
type JSON map[string]interface{}

// Scan 实现 sql.Scanner 接口，sqlite 返回 string，postgres 返回 []byte
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("models: cannot scan %T into JSON", value)
	}
}

// Value 实现 driver.Valuer 接口
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Unmarshal 反序列化到目标结构
func (j JSON) Unmarshal(target interface{}) error {
	if j == nil {
		return nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, target)
}

// AllModels 需要迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&RoomType{},
		&Room{},
		&Booking{},
		&Payment{},
	}
}
