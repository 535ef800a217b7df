package impl

import (
	"io"
	"log/slog"
	"time"

	"citas/internal/domain/entity"
)

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedCode(code string) SessionManagerOption {
	return WithCodeGenerator(func() string { return code })
}

func activeCompany() *entity.VerifiedCompany {
	return &entity.VerifiedCompany{
		ID:             "EMP-01",
		RazonSocial:    "Minera Andina SRL",
		NIT:            "1020304050",
		NumeroPatronal: "01-123-4567",
		Estado:         "ACTIVO",
		Verified:       true,
	}
}

func validReceipt(count int) *entity.ReceiptData {
	receipt := &entity.ReceiptData{
		ReceiptNumber: "123456",
		ReceiptDate:   "2026-03-01",
		Amount:        150.5,
		InsuredCount:  count,
	}
	if count > 1 {
		receipt.EmployerEmail = "rrhh@andina.bo"
		receipt.EmployerPhone = "77712345"
	}

	return receipt
}

func completePerson(nationalID string) *entity.InsuredPerson {
	return &entity.InsuredPerson{
		TemporaryID: "tmp-" + nationalID,
		NationalID:  nationalID,
		FullName:    "Juan Perez",
		BirthDate:   "1990-05-10",
		Email:       "a@b.com",
		Phone:       "77712345",
		Documents: entity.DocumentPair{
			Front: &entity.DocumentFile{Key: "front-" + nationalID, FileName: "front.jpg", ContentType: "image/jpeg", Size: 10},
			Back:  &entity.DocumentFile{Key: "back-" + nationalID, FileName: "back.jpg", ContentType: "image/jpeg", Size: 10},
		},
	}
}
