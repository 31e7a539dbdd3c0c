package khqr

import (
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== Parse 测试 ====================

func TestParse_EndToEnd(t *testing.T) {
	in := &PaymentPayloadInput{
		MerchantAccount:      MerchantAccount{GUID: "kh.com.aba", MerchantID: "123456789012345"},
		MerchantCategoryCode: "7011",
		TransactionCurrency:  "840",
		TransactionAmount:    amountPtr("50.00"),
		CountryCode:          "KH",
		MerchantName:         "ITE Hotel",
		MerchantCity:         "Phnom Penh",
	}

	payload, err := Build(in)
	require.NoError(t, err)

	out, err := Parse(payload)
	require.NoError(t, err)
	assert.Equal(t, "ITE Hotel", out.MerchantName)
	assert.Equal(t, "Phnom Penh", out.MerchantCity)
	assert.Equal(t, "KH", out.CountryCode)
	assert.Equal(t, "840", out.TransactionCurrency)
	require.NotNil(t, out.TransactionAmount)
	assert.True(t, out.TransactionAmount.Equal(decimal.RequireFromString("50.00")))
	assert.NoError(t, Verify(payload))
}

func TestParse_Golden(t *testing.T) {
	out, err := Parse(hotelPayload)
	require.NoError(t, err)

	assert.Equal(t, PayloadFormatIndicator, out.PayloadFormatIndicator)
	assert.Equal(t, InitiationDynamic, out.PointOfInitiation)
	assert.Equal(t, MerchantAccount{Tag: "29", GUID: "kh.com.aba", MerchantID: "123456789012345"}, out.MerchantAccount)
	assert.Equal(t, "7011", out.MerchantCategoryCode)
	assert.Equal(t, map[string]string{"01": "BK001"}, out.AdditionalData)
	assert.Nil(t, out.Extensions)
}

func TestParse_RoundTrip(t *testing.T) {
	inputs := map[string]*PaymentPayloadInput{
		"完整": func() *PaymentPayloadInput {
			in := newHotelInput()
			in.PayloadFormatIndicator = PayloadFormatIndicator
			in.AdditionalData[AdditionalPurposeOfPayment] = "Deluxe room 2 nights"
			in.MerchantAccount.Extra = map[string]string{"02": "ABA Bank"}
			in.Extensions = map[string]string{"64": "0002km", "99": "custom"}
			return in
		}(),
		"静态无金额": func() *PaymentPayloadInput {
			in := newHotelInput()
			in.PayloadFormatIndicator = PayloadFormatIndicator
			in.PointOfInitiation = InitiationStatic
			in.TransactionAmount = nil
			in.AdditionalData = nil
			return in
		}(),
		"其他账户标签": func() *PaymentPayloadInput {
			in := newHotelInput()
			in.PayloadFormatIndicator = PayloadFormatIndicator
			in.MerchantAccount.Tag = "30"
			in.Extensions = map[string]string{"31": "0004test"}
			return in
		}(),
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			payload, err := Build(in)
			require.NoError(t, err)

			out, err := Parse(payload)
			require.NoError(t, err)

			if in.TransactionAmount != nil {
				require.NotNil(t, out.TransactionAmount)
				assert.True(t, in.TransactionAmount.Equal(*out.TransactionAmount))
				out.TransactionAmount = in.TransactionAmount
			}
			assert.Equal(t, in, out)

			again, err := Build(out)
			require.NoError(t, err)
			assert.Equal(t, payload, again)
		})
	}
}

func TestParse_OmittedAmount(t *testing.T) {
	in := newHotelInput()
	in.TransactionAmount = nil

	payload, err := Build(in)
	require.NoError(t, err)

	fields, err := Decode(payload)
	require.NoError(t, err)
	for _, f := range fields {
		assert.NotEqual(t, TagTransactionAmount, f.Tag)
	}

	out, err := Parse(payload)
	require.NoError(t, err)
	assert.Nil(t, out.TransactionAmount)
}

func TestParse_ChecksumMismatch(t *testing.T) {
	corrupted := strings.Replace(hotelPayload, "ITE Hotel", "ITE Hotal", 1)

	_, err := Parse(corrupted)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "CE0E", mismatch.Actual)
	assert.NotEqual(t, mismatch.Actual, mismatch.Expected)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParse_EveryBodyByteFlipDetected(t *testing.T) {
	body := hotelPayload[:len(hotelPayload)-8]
	for i := 0; i < len(body); i++ {
		flipped := []byte(hotelPayload)
		if flipped[i] == 'z' {
			flipped[i] = 'y'
		} else {
			flipped[i] = 'z'
		}
		assert.Error(t, Verify(string(flipped)), "offset %d", i)
	}
}

func TestParse_DeclaredChecksumCorrupted(t *testing.T) {
	corrupted := hotelPayload[:len(hotelPayload)-4] + "0000"
	err := Verify(corrupted)
	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "CE0E", mismatch.Expected)
}

func TestParse_LowercaseChecksumRejected(t *testing.T) {
	lower := hotelPayload[:len(hotelPayload)-4] + "ce0e"
	var mismatch *ChecksumMismatchError
	assert.ErrorAs(t, Verify(lower), &mismatch)
}

func TestParse_TrailingData(t *testing.T) {
	_, err := Parse(hotelPayload + "0000")
	var trailing *UnexpectedTrailingDataError
	require.ErrorAs(t, err, &trailing)
	assert.Equal(t, len(hotelPayload), trailing.Offset)
	assert.Equal(t, "0000", trailing.Trailing)
}

func TestParse_Truncated(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"空串", ""},
		{"缺少CRC", hotelPayload[:len(hotelPayload)-8]},
		{"CRC值不完整", hotelPayload[:len(hotelPayload)-2]},
		{"值被截断", hotelPayload[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.payload)
			var truncated *TruncatedPayloadError
			assert.ErrorAs(t, err, &truncated)
		})
	}
}

func TestParse_BadChecksumLength(t *testing.T) {
	body := "000201" + "6303"
	_, err := Parse(body + "ABC")
	var validation *PayloadValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "crc", validation.Field)
}

func TestParse_InvalidAmount(t *testing.T) {
	body := "000201" + "5403abc" + "6304"
	_, err := Parse(body + ComputeCRC16(body))
	var validation *PayloadValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "transaction_amount", validation.Field)
}

func TestParse_DuplicateTag(t *testing.T) {
	body := "000201" + "5901A" + "5901B" + "6304"
	_, err := Parse(body + ComputeCRC16(body))
	var validation *PayloadValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "merchant_name", validation.Field)
}

func TestParse_BrokenNestedField(t *testing.T) {
	body := "000201" + "2905" + "00099" + "6304"
	_, err := Parse(body + ComputeCRC16(body))
	var truncated *TruncatedPayloadError
	assert.ErrorAs(t, err, &truncated)
}

func TestParse_RejectsInvalidValues(t *testing.T) {
	rebuild := func(from, to string) string {
		body := strings.Replace(hotelPayload[:len(hotelPayload)-4], from, to, 1)
		return body + ComputeCRC16(body)
	}

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"负金额", rebuild("540250", "5403-10"), "transaction_amount"},
		{"零金额", rebuild("540250", "54010"), "transaction_amount"},
		{"三位小数", rebuild("540250", "54051.234"), "transaction_amount"},
		{"指数金额", rebuild("540250", "54031e3"), "transaction_amount"},
		{"商户名称过长", rebuild("5909ITE Hotel", "5930"+strings.Repeat("A", 30)), "merchant_name"},
		{"城市过长", rebuild("6010Phnom Penh", "6018Phnom Penh Capital"), "merchant_city"},
		{"国家代码小写", rebuild("5802KH", "5802kh"), "country_code"},
		{"类别码非数字", rebuild("52047011", "520470AB"), "merchant_category_code"},
		{"币种位数", rebuild("5303840", "530284"), "transaction_currency"},
		{"发起方式", rebuild("010212", "010213"), "point_of_initiation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Verify(tt.payload), "CRC 已重新计算")

			_, err := Parse(tt.payload)
			var validation *PayloadValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	body := "000201" + "6304"
	payload := body + ComputeCRC16(body)
	require.NoError(t, Verify(payload))

	_, err := Parse(payload)
	var validation *PayloadValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "merchant_account", validation.Field)
}

func TestParse_EmptyAdditionalData(t *testing.T) {
	body := strings.Replace(hotelPayload[:len(hotelPayload)-4], "62090105BK001", "6200", 1)
	payload := body + ComputeCRC16(body)

	out, err := Parse(payload)
	require.NoError(t, err)
	require.NotNil(t, out.AdditionalData)
	assert.Empty(t, out.AdditionalData)

	again, err := Build(out)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestFromFields_MatchesParse(t *testing.T) {
	fields, err := Decode(hotelPayload)
	require.NoError(t, err)

	fromFields, err := FromFields(fields)
	require.NoError(t, err)
	parsed, err := Parse(hotelPayload)
	require.NoError(t, err)
	assert.Equal(t, parsed, fromFields)
}

func TestIsAmountText(t *testing.T) {
	for _, s := range []string{"1", "50", "50.5", "0.01", "1234567890.12"} {
		assert.True(t, isAmountText(s), s)
	}
	for _, s := range []string{"", ".", "1.", ".5", "-1", "+1", "1e3", "1.2.3", "1,000"} {
		assert.False(t, isAmountText(s), s)
	}
}

// ==================== Decode 测试 ====================

func TestDecode_Fields(t *testing.T) {
	fields, err := Decode(hotelPayload)
	require.NoError(t, err)
	require.Len(t, fields, 11)

	assert.Equal(t, "29", fields[2].Tag)
	assert.Equal(t, []Field{
		{Tag: "00", Value: "kh.com.aba"},
		{Tag: "01", Value: "123456789012345"},
	}, fields[2].Children)

	last := fields[len(fields)-1]
	assert.Equal(t, Field{Tag: TagCRC, Value: "CE0E"}, last)
}

func TestParse_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload, err := Build(newHotelInput())
			assert.NoError(t, err)
			assert.Equal(t, hotelPayload, payload)
			_, err = Parse(payload)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
