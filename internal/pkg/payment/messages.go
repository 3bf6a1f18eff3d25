package payment

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/campuscircle/campuscircle/app/models"
)

func itemNoun(t models.ItemType) string {
	switch t {
	case models.ItemTypeFood:
		return "food order"
	case models.ItemTypeEvent:
		return "event ticket"
	case models.ItemTypeTutoring:
		return "tutoring session"
	default:
		return "item"
	}
}

func saleNotification(txn *models.Transaction) (string, string) {
	amount := FormatRupiah(SellerEarnings(txn.Amount))
	switch txn.ItemType {
	case models.ItemTypeFood:
		return "New food order", fmt.Sprintf("%q was ordered. %s has been added to your pending balance.", txn.ItemTitle, amount)
	case models.ItemTypeEvent:
		return "New event registration", fmt.Sprintf("A participant paid for %q. %s has been added to your pending balance.", txn.ItemTitle, amount)
	case models.ItemTypeTutoring:
		return "Tutoring session booked", fmt.Sprintf("A student booked %q. %s has been added to your pending balance.", txn.ItemTitle, amount)
	default:
		return "Item sold", fmt.Sprintf("%q has been sold. %s has been added to your pending balance.", txn.ItemTitle, amount)
	}
}

func purchaseNotification(txn *models.Transaction) (string, string) {
	amount := FormatRupiah(txn.Amount)
	switch txn.ItemType {
	case models.ItemTypeFood:
		return "Food order confirmed", fmt.Sprintf("Your payment of %s for %q was received. Check the pickup time with the seller.", amount, txn.ItemTitle)
	case models.ItemTypeEvent:
		return "Registration confirmed", fmt.Sprintf("Your payment of %s for %q was received. You are registered.", amount, txn.ItemTitle)
	case models.ItemTypeTutoring:
		return "Session confirmed", fmt.Sprintf("Your payment of %s for %q was received. Your tutor will contact you.", amount, txn.ItemTitle)
	default:
		return "Purchase successful", fmt.Sprintf("Your payment of %s for %q was received.", amount, txn.ItemTitle)
	}
}

func failureNotification(txn *models.Transaction, status models.TransactionStatus) (string, string) {
	if status == models.TransactionStatusCancelled {
		return "Payment cancelled", fmt.Sprintf("Your payment for the %s %q was cancelled.", itemNoun(txn.ItemType), txn.ItemTitle)
	}
	return "Payment failed", fmt.Sprintf("Your payment for the %s %q failed. No money was taken.", itemNoun(txn.ItemType), txn.ItemTitle)
}

var saleEmailTemplate = template.Must(template.New("sale").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2>You made a sale!</h2>
  <p>Hi {{.SellerName}},</p>
  <p>{{.BuyerName}} just paid for your {{.Noun}} <strong>{{.Title}}</strong>.</p>
  <table cellpadding="4">
    <tr><td>Order</td><td>{{.OrderID}}</td></tr>
    <tr><td>Amount paid</td><td>{{.Amount}}</td></tr>
    <tr><td>Platform fee</td><td>{{.Fee}}</td></tr>
    <tr><td>Your earnings</td><td><strong>{{.Earnings}}</strong></td></tr>
  </table>
  <p>The earnings are in your pending balance.</p>
  <p>CampusCircle</p>
</body>
</html>`))

type saleEmailData struct {
	SellerName string
	BuyerName  string
	Noun       string
	Title      string
	OrderID    string
	Amount     string
	Fee        string
	Earnings   string
}

func renderSaleEmail(txn *models.Transaction, seller, buyer *models.User) (string, string, error) {
	data := saleEmailData{
		SellerName: seller.DisplayName(),
		BuyerName:  buyer.DisplayName(),
		Noun:       itemNoun(txn.ItemType),
		Title:      txn.ItemTitle,
		OrderID:    txn.OrderID,
		Amount:     FormatRupiah(txn.Amount),
		Fee:        FormatRupiah(PlatformFee(txn.Amount)),
		Earnings:   FormatRupiah(SellerEarnings(txn.Amount)),
	}
	var buf bytes.Buffer
	if err := saleEmailTemplate.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return fmt.Sprintf("You made a sale: %s", txn.ItemTitle), buf.String(), nil
}
