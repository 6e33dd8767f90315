package legacy

import (
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
)

// Legacy model names as they appear in the export.
const (
	ModelUser         = "auth.user"
	ModelOrganization = "aythan.organization"
	ModelEmployee     = "employee.employee"
	ModelEmployment   = "employee.employment"
	ModelBankInfo     = "employee.bankinfo"
	ModelDependent    = "employee.dependent"
)

var validate = validator.New()

// Ref is a reference to another legacy record's primary key. The export is
// inconsistent about whether keys are numbers or strings, so both decode to
// the same normalized form.
type Ref string

func (r *Ref) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = Ref(pkString(n))
	return nil
}

func (r Ref) IsZero() bool { return r == "" }

func (r Ref) String() string { return string(r) }

// User is the typed view of an auth.user record.
type User struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Username   string `json:"username" validate:"required"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	DateJoined string `json:"date_joined"`
	Groups     []int  `json:"groups"`

	Raw Fields `json:"-"`
}

// Organization is the typed view of an aythan.organization record.
type Organization struct {
	Title            string `json:"title" validate:"required"`
	URL              string `json:"url"`
	User             Ref    `json:"user"`
	WorkingStartHour string `json:"working_start_hour"`
	WorkingHoursEnd  string `json:"working_hours_end"`

	Raw Fields `json:"-"`
}

// Employee is the typed view of an employee.employee record.
type Employee struct {
	User                 Ref    `json:"user" validate:"required"`
	Organization         Ref    `json:"organization"`
	Active               bool   `json:"status"`
	BirthDate            string `json:"birth_date"`
	ECName               string `json:"ec_name"`
	ECPhone              string `json:"ec_phone"`
	Gender               string `json:"gender"`
	HomeAddress          string `json:"home_address"`
	PersonalEmail        string `json:"personal_email"`
	Phone                string `json:"phone"`
	LabourCard           string `json:"labour_card"`
	LabourExpiryDate     string `json:"labour_expiry_date"`
	PassportNumber       string `json:"passport_number"`
	PassportExpiryDate   string `json:"passport_expiry_date"`
	EmiratesID           string `json:"emirates_id"`
	EmiratesIDExpiryDate string `json:"emirates_id_expiry_date"`
	Languages            string `json:"languages"`
	Nationality          string `json:"nationality"`
	MaritalStatus        string `json:"marital_status"`
	Religion             string `json:"religion"`

	Raw Fields `json:"-"`
}

// Employment is the typed view of an employee.employment record.
type Employment struct {
	Employee          Ref    `json:"employee" validate:"required"`
	LineManager       Ref    `json:"line_manager"`
	Salary            string `json:"salary"`
	Position          string `json:"position"`
	VisaNumber        string `json:"visa_number"`
	VisaExpiryDate    string `json:"visa_expiry_date"`
	VisaDocument      string `json:"visa_document"`
	ContractStartDate string `json:"contract_start_date"`
	ContractEndDate   string `json:"contract_end_date"`

	Raw Fields `json:"-"`
}

// BankInfo is the typed view of an employee.bankinfo record.
type BankInfo struct {
	Employee      Ref    `json:"employee" validate:"required"`
	BankName      string `json:"bank_name"`
	Branch        string `json:"branch"`
	AccountNumber string `json:"account_number"`
	IBAN          string `json:"iban"`
	SwiftCode     string `json:"swift_code"`

	Raw Fields `json:"-"`
}

// Dependent is the typed view of an employee.dependent record.
type Dependent struct {
	Employee             Ref    `json:"employee" validate:"required"`
	Name                 string `json:"name" validate:"required"`
	Relation             string `json:"relation"`
	BirthDate            string `json:"birth_date"`
	Nationality          string `json:"nationality"`
	EmiratesID           string `json:"emirates_id"`
	EmiratesIDExpiryDate string `json:"emirates_id_expiry_date"`
	PassportNumber       string `json:"passport_number"`
	PassportExpiryDate   string `json:"passport_expiry_date"`
	VisaNumber           string `json:"visa_number"`
	VisaExpiryDate       string `json:"visa_expiry_date"`
	VisaDocument         string `json:"visa_document"`

	Raw Fields `json:"-"`
}

func decodeRecord(model string, pk string, f Fields, out any) error {
	b, err := json.Marshal(f)
	if err != nil {
		return errors.Wrapf(err, "%s %s", model, pk)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", model, pk)
	}
	if err := validate.Struct(out); err != nil {
		return errors.Wrapf(err, "invalid %s %s", model, pk)
	}
	return nil
}

func DecodeUser(pk string, f Fields) (User, error) {
	var rec User
	err := decodeRecord(ModelUser, pk, f, &rec)
	rec.Raw = f
	return rec, err
}

func DecodeOrganization(pk string, f Fields) (Organization, error) {
	var rec Organization
	err := decodeRecord(ModelOrganization, pk, f, &rec)
	rec.Raw = f
	return rec, err
}

func DecodeEmployee(pk string, f Fields) (Employee, error) {
	var rec Employee
	err := decodeRecord(ModelEmployee, pk, f, &rec)
	rec.Raw = f
	return rec, err
}

func DecodeEmployment(pk string, f Fields) (Employment, error) {
	var rec Employment
	err := decodeRecord(ModelEmployment, pk, f, &rec)
	rec.Raw = f
	return rec, err
}

func DecodeBankInfo(pk string, f Fields) (BankInfo, error) {
	var rec BankInfo
	err := decodeRecord(ModelBankInfo, pk, f, &rec)
	rec.Raw = f
	return rec, err
}

func DecodeDependent(pk string, f Fields) (Dependent, error) {
	var rec Dependent
	err := decodeRecord(ModelDependent, pk, f, &rec)
	rec.Raw = f
	return rec, err
}
