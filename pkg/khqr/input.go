package khqr

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// 顶层标签
const (
	TagPayloadFormatIndicator = "00"
	TagPointOfInitiation      = "01"
	TagMerchantCategoryCode   = "52"
	TagTransactionCurrency    = "53"
	TagTransactionAmount      = "54"
	TagCountryCode            = "58"
	TagMerchantName           = "59"
	TagMerchantCity           = "60"
	TagAdditionalData         = "62"
	TagCRC                    = "63"
)

// 商户账户信息标签区间
const (
	MerchantAccountTagMin = 26
	MerchantAccountTagMax = 51
)

// DefaultMerchantAccountTag KHQR 个人/商户账户使用的标签
const DefaultMerchantAccountTag = "29"

// PayloadFormatIndicator 固定载荷格式版本
const PayloadFormatIndicator = "01"

// 商户账户子标签
const (
	SubTagGUID       = "00"
	SubTagMerchantID = "01"
)

// 附加数据常用子标签
const (
	AdditionalBillNumber       = "01"
	AdditionalMobileNumber     = "02"
	AdditionalStoreLabel       = "03"
	AdditionalReferenceLabel   = "05"
	AdditionalTerminalLabel    = "07"
	AdditionalPurposeOfPayment = "08"
)

// 字段长度限制
const (
	MaxMerchantNameLength = 25
	MaxMerchantCityLength = 15
	maxAmountLength       = 13
)

// InitiationMethod 发起方式
type InitiationMethod string

const (
	InitiationStatic  InitiationMethod = "11" // 静态码，可重复扫描
	InitiationDynamic InitiationMethod = "12" // 动态码，单笔交易
)

// MerchantAccount 商户账户信息
type MerchantAccount struct {
	Tag        string            `json:"tag"`
	GUID       string            `json:"guid"`
	MerchantID string            `json:"merchant_id"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// PaymentPayloadInput 载荷构建输入，也是解析结果
type PaymentPayloadInput struct {
	PayloadFormatIndicator string            `json:"payload_format_indicator"`
	PointOfInitiation      InitiationMethod  `json:"point_of_initiation,omitempty"` // 为空时不输出 01
	MerchantAccount        MerchantAccount   `json:"merchant_account"`
	MerchantCategoryCode   string            `json:"merchant_category_code"`
	TransactionCurrency    string            `json:"transaction_currency"`
	TransactionAmount      *decimal.Decimal  `json:"transaction_amount,omitempty"`
	CountryCode            string            `json:"country_code"`
	MerchantName           string            `json:"merchant_name"`
	MerchantCity           string            `json:"merchant_city"`
	AdditionalData         map[string]string `json:"additional_data,omitempty"`
	Extensions             map[string]string `json:"extensions,omitempty"`
}

// FormatAmount 金额的载荷表示，去掉末尾的 0
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}

// Validate 校验所有字段，返回第一个错误
func (in *PaymentPayloadInput) Validate() error {
	if in.PayloadFormatIndicator != "" && in.PayloadFormatIndicator != PayloadFormatIndicator {
		return invalid("payload_format_indicator", "must be "+PayloadFormatIndicator)
	}

	switch in.PointOfInitiation {
	case "", InitiationStatic, InitiationDynamic:
	default:
		return invalid("point_of_initiation", "must be 11 or 12")
	}

	if err := in.MerchantAccount.validate(); err != nil {
		return err
	}

	if !isDigits(in.MerchantCategoryCode) || len(in.MerchantCategoryCode) != 4 {
		return invalid("merchant_category_code", "must be 4 digits")
	}
	if !isDigits(in.TransactionCurrency) || len(in.TransactionCurrency) != 3 {
		return invalid("transaction_currency", "must be 3-digit ISO 4217 numeric code")
	}

	if in.TransactionAmount != nil {
		amount := *in.TransactionAmount
		if !amount.IsPositive() {
			return invalid("transaction_amount", "must be positive")
		}
		if !amount.Equal(amount.Truncate(2)) {
			return invalid("transaction_amount", "at most 2 fractional digits")
		}
		if len(FormatAmount(amount)) > maxAmountLength {
			return invalid("transaction_amount", "too large")
		}
	}

	if !isCountryCode(in.CountryCode) {
		return invalid("country_code", "must be 2 uppercase letters")
	}
	if err := checkText("merchant_name", in.MerchantName, MaxMerchantNameLength); err != nil {
		return err
	}
	if err := checkText("merchant_city", in.MerchantCity, MaxMerchantCityLength); err != nil {
		return err
	}

	for tag, value := range in.AdditionalData {
		if !isTag(tag) {
			return invalid("additional_data", "sub-tag "+strconv.Quote(tag)+" must be 2 digits")
		}
		if !isPrintable(value) {
			return invalid("additional_data", "sub-tag "+tag+" contains non-printable characters")
		}
	}

	for tag, value := range in.Extensions {
		if !isTag(tag) {
			return invalid("extensions", "tag "+strconv.Quote(tag)+" must be 2 digits")
		}
		if in.isReservedTag(tag) {
			return invalid("extensions", "tag "+tag+" is reserved")
		}
		if !isPrintable(value) {
			return invalid("extensions", "tag "+tag+" contains non-printable characters")
		}
		if isTemplateTag(tag) && value != "" {
			if _, err := DecodeFields(value); err != nil {
				return &PayloadValidationError{Field: "extensions", Reason: "template tag " + tag + " is not TLV", Err: err}
			}
		}
	}
	return nil
}

func (in *PaymentPayloadInput) accountTag() string {
	if in.MerchantAccount.Tag == "" {
		return DefaultMerchantAccountTag
	}
	return in.MerchantAccount.Tag
}

func (in *PaymentPayloadInput) isReservedTag(tag string) bool {
	switch tag {
	case TagPayloadFormatIndicator, TagPointOfInitiation, TagMerchantCategoryCode,
		TagTransactionCurrency, TagTransactionAmount, TagCountryCode,
		TagMerchantName, TagMerchantCity, TagAdditionalData, TagCRC:
		return true
	}
	return tag == in.accountTag()
}

func (m *MerchantAccount) validate() error {
	if m.Tag != "" && !IsMerchantAccountTag(m.Tag) {
		return invalid("merchant_account", "tag must be in 26-51")
	}
	if m.GUID == "" || !isPrintable(m.GUID) {
		return invalid("merchant_account", "guid is required")
	}
	if m.MerchantID == "" || !isPrintable(m.MerchantID) {
		return invalid("merchant_account", "merchant id is required")
	}
	for tag, value := range m.Extra {
		if !isTag(tag) || tag == SubTagGUID || tag == SubTagMerchantID {
			return invalid("merchant_account", "invalid sub-tag "+strconv.Quote(tag))
		}
		if !isPrintable(value) {
			return invalid("merchant_account", "sub-tag "+tag+" contains non-printable characters")
		}
	}
	return nil
}

// IsMerchantAccountTag 是否为商户账户信息标签
func IsMerchantAccountTag(tag string) bool {
	if !isTag(tag) {
		return false
	}
	n, _ := strconv.Atoi(tag)
	return n >= MerchantAccountTagMin && n <= MerchantAccountTagMax
}

func isTemplateTag(tag string) bool {
	return tag == TagAdditionalData || IsMerchantAccountTag(tag)
}

func checkText(field, value string, maxLen int) error {
	if value == "" {
		return invalid(field, "is required")
	}
	if len(value) > maxLen {
		return invalid(field, "at most "+strconv.Itoa(maxLen)+" characters")
	}
	if !isPrintable(value) {
		return invalid(field, "contains non-printable characters")
	}
	return nil
}

func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return false
		}
	}
	return true
}

func isCountryCode(s string) bool {
	return len(s) == 2 && s[0] >= 'A' && s[0] <= 'Z' && s[1] >= 'A' && s[1] <= 'Z'
}

func sortedFields(m map[string]string) []Field {
	tags := make([]string, 0, len(m))
	for tag := range m {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fields := make([]Field, 0, len(tags))
	for _, tag := range tags {
		fields = append(fields, Field{Tag: tag, Value: m[tag]})
	}
	return fields
}
