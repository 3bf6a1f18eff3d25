package payment

import "github.com/shopspring/decimal"

// PlatformFeeRate is the share of a sale withheld by the platform.
var PlatformFeeRate = decimal.RequireFromString("0.05")

// PlatformFee returns floor(amount * PlatformFeeRate).
func PlatformFee(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(PlatformFeeRate).Floor().IntPart()
}

// SellerEarnings returns what the seller is credited for a sale of amount.
func SellerEarnings(amount int64) int64 {
	return amount - PlatformFee(amount)
}

// FormatRupiah renders an amount in the smallest currency unit as "Rp 95.000".
func FormatRupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := decimal.NewFromInt(amount).String()
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, digits[i])
	}
	if neg {
		return "-Rp " + string(out)
	}
	return "Rp " + string(out)
}
