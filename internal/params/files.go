package params

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/maplepay/maplepay/internal/domain"
)

// On-disk parameter documents. Every numeric field is a decimal string in
// the file; yaml decoding goes straight into decimal.Decimal so no binary
// float ever touches a statutory constant.

type metadataDoc struct {
	Source           string `yaml:"source"`
	EffectiveDate    string `yaml:"effective_date"`
	ValidationStatus string `yaml:"validation_status"`
	LastUpdated      string `yaml:"last_updated"`
}

type bracketDoc struct {
	Threshold decimal.Decimal  `yaml:"threshold"`
	Rate      decimal.Decimal  `yaml:"rate"`
	KConstant *decimal.Decimal `yaml:"k_constant,omitempty"`
}

type cppEIDoc struct {
	Metadata metadataDoc `yaml:"_metadata"`
	Year     int         `yaml:"year"`
	CPP      struct {
		YMPE                      decimal.Decimal `yaml:"ympe"`
		YAMPE                     decimal.Decimal `yaml:"yampe"`
		BasicExemption            decimal.Decimal `yaml:"basic_exemption"`
		BaseRate                  decimal.Decimal `yaml:"base_rate"`
		AdditionalRate            decimal.Decimal `yaml:"additional_rate"`
		MaxBaseContribution       decimal.Decimal `yaml:"max_base_contribution"`
		MaxAdditionalContribution decimal.Decimal `yaml:"max_additional_contribution"`
	} `yaml:"cpp"`
	EI struct {
		MIE                decimal.Decimal `yaml:"mie"`
		EmployeeRate       decimal.Decimal `yaml:"employee_rate"`
		EmployerMultiplier decimal.Decimal `yaml:"employer_multiplier"`
	} `yaml:"ei"`
}

type federalDoc struct {
	Metadata               metadataDoc     `yaml:"_metadata"`
	Year                   int             `yaml:"year"`
	Edition                string          `yaml:"edition"`
	BasicPersonalAmount    decimal.Decimal `yaml:"basic_personal_amount"`
	CanadaEmploymentAmount decimal.Decimal `yaml:"canada_employment_amount"`
	IndexingRate           decimal.Decimal `yaml:"indexing_rate"`
	CreditRate             decimal.Decimal `yaml:"credit_rate"`
	Brackets               []bracketDoc    `yaml:"brackets"`
}

type surtaxDoc struct {
	Threshold1 decimal.Decimal `yaml:"threshold_1"`
	Rate1      decimal.Decimal `yaml:"rate_1"`
	Threshold2 decimal.Decimal `yaml:"threshold_2"`
	Rate2      decimal.Decimal `yaml:"rate_2"`
}

type premiumBandDoc struct {
	From decimal.Decimal `yaml:"from"`
	Base decimal.Decimal `yaml:"base"`
	Rate decimal.Decimal `yaml:"rate"`
	Cap  decimal.Decimal `yaml:"cap"`
}

type taxReductionDoc struct {
	MaxReduction decimal.Decimal `yaml:"max_reduction"`
	Threshold    decimal.Decimal `yaml:"threshold"`
	Rate         decimal.Decimal `yaml:"rate"`
}

type k5pDoc struct {
	Rate          decimal.Decimal `yaml:"rate"`
	IncomeCeiling decimal.Decimal `yaml:"income_ceiling"`
}

type dynamicBPADoc struct {
	Kind            string          `yaml:"kind"`
	PhaseOutStart   decimal.Decimal `yaml:"phase_out_start"`
	PhaseOutEnd     decimal.Decimal `yaml:"phase_out_end"`
	SupplementStart decimal.Decimal `yaml:"supplement_start"`
	SupplementEnd   decimal.Decimal `yaml:"supplement_end"`
	SupplementRate  decimal.Decimal `yaml:"supplement_rate"`
	SupplementMax   decimal.Decimal `yaml:"supplement_max"`
}

type provinceDoc struct {
	BasicPersonalAmount decimal.Decimal  `yaml:"basic_personal_amount"`
	CreditRate          decimal.Decimal  `yaml:"credit_rate"`
	Brackets            []bracketDoc     `yaml:"brackets"`
	EmploymentAmount    decimal.Decimal  `yaml:"employment_amount"`
	HasSurtax           bool             `yaml:"has_surtax"`
	HasHealthPremium    bool             `yaml:"has_health_premium"`
	HasTaxReduction     bool             `yaml:"has_tax_reduction"`
	HasK5P              bool             `yaml:"has_k5p"`
	HasDynamicBPA       bool             `yaml:"has_dynamic_bpa"`
	Surtax              *surtaxDoc       `yaml:"surtax,omitempty"`
	HealthPremium       []premiumBandDoc `yaml:"health_premium,omitempty"`
	TaxReduction        *taxReductionDoc `yaml:"tax_reduction,omitempty"`
	K5P                 *k5pDoc          `yaml:"k5p,omitempty"`
	DynamicBPA          *dynamicBPADoc   `yaml:"dynamic_bpa,omitempty"`
}

type provincesDoc struct {
	Metadata      metadataDoc            `yaml:"_metadata"`
	Year          int                    `yaml:"year"`
	Edition       string                 `yaml:"edition"`
	Jurisdictions map[string]provinceDoc `yaml:"jurisdictions"`
}

func readDoc(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrParameterNotFound, filepath.Base(path))
		}
		return fmt.Errorf("%w: reading %s: %v", ErrParameterInvalid, filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrParameterInvalid, filepath.Base(path), err)
	}
	return nil
}

// deriveBrackets converts document brackets into domain brackets, deriving
// each K constant cumulatively from the rate steps:
// K_i = K_{i-1} + (R_i - R_{i-1}) x threshold_i. A K present in the file is
// checked against the derivation to catch transcription errors.
func deriveBrackets(file string, docs []bracketDoc) ([]domain.TaxBracket, error) {
	out := make([]domain.TaxBracket, len(docs))
	k := decimal.Zero
	for i, d := range docs {
		if i > 0 {
			step := d.Rate.Sub(docs[i-1].Rate).Mul(d.Threshold)
			k = k.Add(step)
		}
		if d.KConstant != nil && !d.KConstant.Equal(k) {
			return nil, fmt.Errorf("%w: %s: bracket %d k_constant %s does not match derived %s",
				ErrParameterInvalid, file, i, d.KConstant, k)
		}
		out[i] = domain.TaxBracket{Threshold: d.Threshold, Rate: d.Rate, Constant: k}
	}
	return out, nil
}

func (d cppEIDoc) toCPP() domain.CPPParams {
	return domain.CPPParams{
		Year:                      d.Year,
		YMPE:                      d.CPP.YMPE,
		YAMPE:                     d.CPP.YAMPE,
		BasicExemption:            d.CPP.BasicExemption,
		BaseRate:                  d.CPP.BaseRate,
		AdditionalRate:            d.CPP.AdditionalRate,
		MaxBaseContribution:       d.CPP.MaxBaseContribution,
		MaxAdditionalContribution: d.CPP.MaxAdditionalContribution,
	}
}

func (d cppEIDoc) toEI() domain.EIParams {
	return domain.EIParams{
		Year:               d.Year,
		MIE:                d.EI.MIE,
		EmployeeRate:       d.EI.EmployeeRate,
		EmployerMultiplier: d.EI.EmployerMultiplier,
	}
}

func (d federalDoc) toFederal(file string) (domain.FederalParams, error) {
	brackets, err := deriveBrackets(file, d.Brackets)
	if err != nil {
		return domain.FederalParams{}, err
	}
	return domain.FederalParams{
		Year:                d.Year,
		Edition:             domain.Edition(d.Edition),
		BasicPersonalAmount: d.BasicPersonalAmount,
		CanadaEmploymentAmt: d.CanadaEmploymentAmount,
		IndexingRate:        d.IndexingRate,
		CreditRate:          d.CreditRate,
		Brackets:            brackets,
	}, nil
}

func (d provinceDoc) toJurisdiction(file string, code domain.Jurisdiction, year int, edition domain.Edition) (domain.JurisdictionParams, error) {
	brackets, err := deriveBrackets(file, d.Brackets)
	if err != nil {
		return domain.JurisdictionParams{}, err
	}
	p := domain.JurisdictionParams{
		Code:                code,
		Year:                year,
		Edition:             edition,
		BasicPersonalAmount: d.BasicPersonalAmount,
		CreditRate:          d.CreditRate,
		Brackets:            brackets,
		EmploymentAmount:    d.EmploymentAmount,
		HasSurtax:           d.HasSurtax,
		HasHealthPremium:    d.HasHealthPremium,
		HasTaxReduction:     d.HasTaxReduction,
		HasK5P:              d.HasK5P,
		HasDynamicBPA:       d.HasDynamicBPA,
	}
	if d.Surtax != nil {
		p.Surtax = &domain.SurtaxParams{
			Threshold1: d.Surtax.Threshold1, Rate1: d.Surtax.Rate1,
			Threshold2: d.Surtax.Threshold2, Rate2: d.Surtax.Rate2,
		}
	}
	for _, b := range d.HealthPremium {
		p.HealthPremium = append(p.HealthPremium, domain.PremiumBand{
			From: b.From, Base: b.Base, Rate: b.Rate, Cap: b.Cap,
		})
	}
	if d.TaxReduction != nil {
		p.TaxReduction = &domain.TaxReductionParams{
			MaxReduction: d.TaxReduction.MaxReduction,
			Threshold:    d.TaxReduction.Threshold,
			Rate:         d.TaxReduction.Rate,
		}
	}
	if d.K5P != nil {
		p.K5P = &domain.K5PParams{Rate: d.K5P.Rate, IncomeCeiling: d.K5P.IncomeCeiling}
	}
	if d.DynamicBPA != nil {
		p.DynamicBPA = &domain.DynamicBPAParams{
			Kind:            domain.DynamicBPAKind(d.DynamicBPA.Kind),
			PhaseOutStart:   d.DynamicBPA.PhaseOutStart,
			PhaseOutEnd:     d.DynamicBPA.PhaseOutEnd,
			SupplementStart: d.DynamicBPA.SupplementStart,
			SupplementEnd:   d.DynamicBPA.SupplementEnd,
			SupplementRate:  d.DynamicBPA.SupplementRate,
			SupplementMax:   d.DynamicBPA.SupplementMax,
		}
	}
	return p, nil
}
