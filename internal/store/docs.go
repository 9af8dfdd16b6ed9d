package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/maplepay/maplepay/internal/domain"
)

// The blob documents pin monetary amounts to fixed two-digit strings so a
// stored record re-reads to exactly the cents that were computed,
// independent of driver or JSON number handling.

type ytdDoc struct {
	Gross               string `json:"gross"`
	CPPBase             string `json:"cpp_base"`
	CPPAdditional       string `json:"cpp_additional"`
	EI                  string `json:"ei"`
	FederalTax          string `json:"federal_tax"`
	ProvincialTax       string `json:"provincial_tax"`
	PensionableEarnings string `json:"pensionable_earnings"`
	InsurableEarnings   string `json:"insurable_earnings"`
}

type inputDoc struct {
	EmployeeID   string `json:"employee_id"`
	Jurisdiction string `json:"jurisdiction"`
	Frequency    string `json:"frequency"`
	PayDate      string `json:"pay_date"`

	GrossRegular    string `json:"gross_regular"`
	GrossOvertime   string `json:"gross_overtime"`
	TaxableBenefits string `json:"taxable_benefits"`
	VacationPay     string `json:"vacation_pay"`

	RRSP         string `json:"rrsp"`
	UnionDues    string `json:"union_dues"`
	OtherPreTax  string `json:"other_pre_tax"`
	Garnishments string `json:"garnishments"`

	FederalClaim    string `json:"federal_claim"`
	ProvincialClaim string `json:"provincial_claim"`

	CPPExempt  bool `json:"cpp_exempt"`
	EIExempt   bool `json:"ei_exempt"`
	CPP2Exempt bool `json:"cpp2_exempt"`

	YTDBefore ytdDoc `json:"ytd_before"`
}

type resultDoc struct {
	TotalGross      string `json:"total_gross"`
	CPPBase         string `json:"cpp_base"`
	CPPAdditional   string `json:"cpp_additional"`
	EI              string `json:"ei"`
	FederalTax      string `json:"federal_tax"`
	ProvincialTax   string `json:"provincial_tax"`
	PreTax          string `json:"pre_tax"`
	PostTax         string `json:"post_tax"`
	TotalDeductions string `json:"total_deductions"`
	NetPay          string `json:"net_pay"`

	EmployerCPP string `json:"employer_cpp"`
	EmployerEI  string `json:"employer_ei"`

	PensionableEarnings string `json:"pensionable_earnings"`
	InsurableEarnings   string `json:"insurable_earnings"`

	YTDAfter ytdDoc `json:"ytd_after"`
}

func ytdToDoc(y domain.YTDAccumulator) ytdDoc {
	return ytdDoc{
		Gross:               y.Gross.StringFixed(2),
		CPPBase:             y.CPPBase.StringFixed(2),
		CPPAdditional:       y.CPPAdditional.StringFixed(2),
		EI:                  y.EI.StringFixed(2),
		FederalTax:          y.FederalTax.StringFixed(2),
		ProvincialTax:       y.ProvincialTax.StringFixed(2),
		PensionableEarnings: y.PensionableEarnings.StringFixed(2),
		InsurableEarnings:   y.InsurableEarnings.StringFixed(2),
	}
}

func ytdFromDoc(d ytdDoc) (domain.YTDAccumulator, error) {
	var y domain.YTDAccumulator
	var err error
	for _, f := range []struct {
		s   string
		dst *decimal.Decimal
	}{
		{d.Gross, &y.Gross},
		{d.CPPBase, &y.CPPBase},
		{d.CPPAdditional, &y.CPPAdditional},
		{d.EI, &y.EI},
		{d.FederalTax, &y.FederalTax},
		{d.ProvincialTax, &y.ProvincialTax},
		{d.PensionableEarnings, &y.PensionableEarnings},
		{d.InsurableEarnings, &y.InsurableEarnings},
	} {
		if *f.dst, err = parseAmount(f.s); err != nil {
			return domain.YTDAccumulator{}, err
		}
	}
	return y, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: corrupt stored amount %q", domain.ErrInternal, s)
	}
	return d, nil
}

func encodeInput(in domain.CalculationInput) (datatypes.JSON, error) {
	doc := inputDoc{
		EmployeeID:      in.EmployeeID.String(),
		Jurisdiction:    string(in.Jurisdiction),
		Frequency:       string(in.Frequency),
		PayDate:         in.PayDate.Format(time.RFC3339),
		GrossRegular:    in.GrossRegular.StringFixed(2),
		GrossOvertime:   in.GrossOvertime.StringFixed(2),
		TaxableBenefits: in.TaxableBenefits.StringFixed(2),
		VacationPay:     in.VacationPay.StringFixed(2),
		RRSP:            in.RRSP.StringFixed(2),
		UnionDues:       in.UnionDues.StringFixed(2),
		OtherPreTax:     in.OtherPreTax.StringFixed(2),
		Garnishments:    in.Garnishments.StringFixed(2),
		FederalClaim:    in.FederalClaim.StringFixed(2),
		ProvincialClaim: in.ProvincialClaim.StringFixed(2),
		CPPExempt:       in.CPPExempt,
		EIExempt:        in.EIExempt,
		CPP2Exempt:      in.CPP2Exempt,
		YTDBefore:       ytdToDoc(in.YTDBefore),
	}
	return json.Marshal(doc)
}

func decodeInput(blob datatypes.JSON) (domain.CalculationInput, error) {
	var doc inputDoc
	if err := json.Unmarshal(blob, &doc); err != nil {
		return domain.CalculationInput{}, fmt.Errorf("%w: corrupt input blob: %v", domain.ErrInternal, err)
	}
	id, err := uuid.Parse(doc.EmployeeID)
	if err != nil {
		return domain.CalculationInput{}, fmt.Errorf("%w: corrupt employee id %q", domain.ErrInternal, doc.EmployeeID)
	}
	payDate, err := time.Parse(time.RFC3339, doc.PayDate)
	if err != nil {
		return domain.CalculationInput{}, fmt.Errorf("%w: corrupt pay date %q", domain.ErrInternal, doc.PayDate)
	}
	in := domain.CalculationInput{
		EmployeeID:   id,
		Jurisdiction: domain.Jurisdiction(doc.Jurisdiction),
		Frequency:    domain.PayFrequency(doc.Frequency),
		PayDate:      payDate,
		CPPExempt:    doc.CPPExempt,
		EIExempt:     doc.EIExempt,
		CPP2Exempt:   doc.CPP2Exempt,
	}
	for _, f := range []struct {
		s   string
		dst *decimal.Decimal
	}{
		{doc.GrossRegular, &in.GrossRegular},
		{doc.GrossOvertime, &in.GrossOvertime},
		{doc.TaxableBenefits, &in.TaxableBenefits},
		{doc.VacationPay, &in.VacationPay},
		{doc.RRSP, &in.RRSP},
		{doc.UnionDues, &in.UnionDues},
		{doc.OtherPreTax, &in.OtherPreTax},
		{doc.Garnishments, &in.Garnishments},
		{doc.FederalClaim, &in.FederalClaim},
		{doc.ProvincialClaim, &in.ProvincialClaim},
	} {
		if *f.dst, err = parseAmount(f.s); err != nil {
			return domain.CalculationInput{}, err
		}
	}
	if in.YTDBefore, err = ytdFromDoc(doc.YTDBefore); err != nil {
		return domain.CalculationInput{}, err
	}
	return in, nil
}

func encodeResult(r *domain.CalculationResult) (datatypes.JSON, error) {
	if r == nil {
		return nil, nil
	}
	doc := resultDoc{
		TotalGross:          r.TotalGross.StringFixed(2),
		CPPBase:             r.CPPBase.StringFixed(2),
		CPPAdditional:       r.CPPAdditional.StringFixed(2),
		EI:                  r.EI.StringFixed(2),
		FederalTax:          r.FederalTax.StringFixed(2),
		ProvincialTax:       r.ProvincialTax.StringFixed(2),
		PreTax:              r.PreTax.StringFixed(2),
		PostTax:             r.PostTax.StringFixed(2),
		TotalDeductions:     r.TotalDeductions.StringFixed(2),
		NetPay:              r.NetPay.StringFixed(2),
		EmployerCPP:         r.EmployerCPP.StringFixed(2),
		EmployerEI:          r.EmployerEI.StringFixed(2),
		PensionableEarnings: r.PensionableEarnings.StringFixed(2),
		InsurableEarnings:   r.InsurableEarnings.StringFixed(2),
		YTDAfter:            ytdToDoc(r.YTDAfter),
	}
	return json.Marshal(doc)
}

func decodeResult(blob datatypes.JSON) (*domain.CalculationResult, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	var doc resultDoc
	if err := json.Unmarshal(blob, &doc); err != nil {
		return nil, fmt.Errorf("%w: corrupt result blob: %v", domain.ErrInternal, err)
	}
	var r domain.CalculationResult
	var err error
	for _, f := range []struct {
		s   string
		dst *decimal.Decimal
	}{
		{doc.TotalGross, &r.TotalGross},
		{doc.CPPBase, &r.CPPBase},
		{doc.CPPAdditional, &r.CPPAdditional},
		{doc.EI, &r.EI},
		{doc.FederalTax, &r.FederalTax},
		{doc.ProvincialTax, &r.ProvincialTax},
		{doc.PreTax, &r.PreTax},
		{doc.PostTax, &r.PostTax},
		{doc.TotalDeductions, &r.TotalDeductions},
		{doc.NetPay, &r.NetPay},
		{doc.EmployerCPP, &r.EmployerCPP},
		{doc.EmployerEI, &r.EmployerEI},
		{doc.PensionableEarnings, &r.PensionableEarnings},
		{doc.InsurableEarnings, &r.InsurableEarnings},
	} {
		if *f.dst, err = parseAmount(f.s); err != nil {
			return nil, err
		}
	}
	if r.YTDAfter, err = ytdFromDoc(doc.YTDAfter); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeSnapshot(s domain.EmployeeSnapshot) (datatypes.JSON, error) {
	return json.Marshal(s)
}

func decodeSnapshot(blob datatypes.JSON) (domain.EmployeeSnapshot, error) {
	var s domain.EmployeeSnapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return domain.EmployeeSnapshot{}, fmt.Errorf("%w: corrupt snapshot blob: %v", domain.ErrInternal, err)
	}
	return s, nil
}
