package banking

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aibanking/conversation-core/internal/model"
)

func newBank() *Mock { return NewMock("EBP Bank", "US") }

func TestGetAccountByType(t *testing.T) {
	bank := newBank()

	acct, err := bank.GetAccountByType(context.Background(), model.AccountChecking)
	require.NoError(t, err)
	assert.Equal(t, "acc-001", acct.ID)
	assert.Equal(t, 2500.00, acct.Balance)

	_, err = bank.GetAccountByType(context.Background(), "crypto")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestSearchRecipients(t *testing.T) {
	bank := newBank()

	matches, err := bank.SearchRecipients(context.Background(), "John")
	require.NoError(t, err)
	// Substring match: John Smith, John Doe, and Sarah Johnson.
	assert.Len(t, matches, 3)

	matches, err = bank.SearchRecipients(context.Background(), "jack")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Jack White", matches[0].Name)

	matches, err = bank.SearchRecipients(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecipientTransferTypeDerivation(t *testing.T) {
	bank := newBank()
	ctx := context.Background()

	smith, err := bank.GetRecipientByID(ctx, "rcp-001")
	require.NoError(t, err)
	assert.Equal(t, model.TransferInternal, smith.TransferType("EBP Bank", "US"))

	doe, err := bank.GetRecipientByID(ctx, "rcp-002")
	require.NoError(t, err)
	assert.Equal(t, model.TransferDomestic, doe.TransferType("EBP Bank", "US"))

	jack, err := bank.GetRecipientByID(ctx, "rcp-003")
	require.NoError(t, err)
	assert.Equal(t, model.TransferInternational, jack.TransferType("EBP Bank", "US"))
}

func TestTransferFundsMovesBalances(t *testing.T) {
	bank := newBank()
	ctx := context.Background()

	result, err := bank.TransferFunds(ctx, model.AccountChecking, model.AccountSavings, 500)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.TransactionID, "TXN_"))
	assert.Equal(t, "completed", result.Status)
	assert.Zero(t, result.Fee)

	checking, _ := bank.GetAccount(ctx, "acc-001")
	savings, _ := bank.GetAccount(ctx, "acc-002")
	assert.Equal(t, 2000.00, checking.Balance)
	assert.Equal(t, 15500.00, savings.Balance)
}

func TestTransferFundsInsufficientBalance(t *testing.T) {
	bank := newBank()

	_, err := bank.TransferFunds(context.Background(), model.AccountChecking, model.AccountSavings, 99999)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestValidateTransferRejectsNonPositiveAmount(t *testing.T) {
	bank := newBank()

	err := bank.ValidateTransfer(context.Background(), &TransferRequest{Amount: 0})
	assert.Error(t, err)
	err = bank.ValidateTransfer(context.Background(), &TransferRequest{Amount: -5})
	assert.Error(t, err)
}

func TestSendPaymentInternationalFee(t *testing.T) {
	bank := newBank()

	result, err := bank.SendPayment(context.Background(), "rcp-003", 2000, "invoice 42")
	require.NoError(t, err)
	assert.Equal(t, 25.00, result.Fee)

	domestic, err := bank.SendPayment(context.Background(), "rcp-004", 2000, "")
	require.NoError(t, err)
	assert.Zero(t, domestic.Fee)
}

func TestSendPaymentUnknownRecipient(t *testing.T) {
	bank := newBank()

	_, err := bank.SendPayment(context.Background(), "rcp-999", 50, "")
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestApprovalMethodThresholds(t *testing.T) {
	bank := newBank()
	ctx := context.Background()

	cases := map[float64]string{
		100:   model.ApprovalBiometric,
		2500:  model.ApprovalBiometric,
		2501:  model.ApprovalPIN,
		25000: model.ApprovalPIN,
		25001: model.ApprovalBiometricAndPIN,
	}
	for amount, wantMethod := range cases {
		ticket, err := bank.RequestTransactionApproval(ctx, "payments.transfer.external", amount)
		require.NoError(t, err)
		assert.Equal(t, wantMethod, ticket.Method, "amount %.2f", amount)
		assert.True(t, strings.HasPrefix(ticket.Token, "APV-"))
		assert.False(t, ticket.ExpiresAt.IsZero())
	}
}

func TestVerifyTransactionApproval(t *testing.T) {
	bank := newBank()
	ctx := context.Background()

	ok, err := bank.VerifyTransactionApproval(ctx, model.ApprovalBiometric, &model.VerificationData{BiometricSuccess: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalPIN, &model.VerificationData{PIN: MockPIN})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalPIN, &model.VerificationData{PIN: "0000"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalSecurityQ, &model.VerificationData{Answer: MockSecurityAnswer})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalBiometricAndPIN, &model.VerificationData{BiometricSuccess: true, PIN: MockPIN})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalBiometricAndPIN, &model.VerificationData{BiometricSuccess: true})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = bank.VerifyTransactionApproval(ctx, model.ApprovalBiometric, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = bank.VerifyTransactionApproval(ctx, "retina_scan", nil)
	assert.Error(t, err)
}

func TestBlockCardAndDispute(t *testing.T) {
	bank := newBank()
	ctx := context.Background()

	blocked, err := bank.BlockCard(ctx, "4532123456784321")
	require.NoError(t, err)
	assert.True(t, blocked.Success)
	assert.Contains(t, blocked.Message, "4321")
	assert.True(t, strings.HasPrefix(blocked.ReferenceID, "BLK_"))

	dispute, err := bank.DisputeTransaction(ctx, "TXN_a1b2c3d4", "unrecognized charge")
	require.NoError(t, err)
	assert.Equal(t, model.OpPending, dispute.Status)
	assert.True(t, strings.HasPrefix(dispute.ReferenceID, "DSP_"))
}

func TestGetTransactionHistory(t *testing.T) {
	bank := newBank()

	txns, err := bank.GetTransactionHistory(context.Background(), "acc-001", 1)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "TXN_a1b2c3d4", txns[0].ID)

	txns, err = bank.GetTransactionHistory(context.Background(), "acc-404", 10)
	require.NoError(t, err)
	assert.Empty(t, txns)
}
