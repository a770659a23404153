// Package payload decodes the registry company document.
//
// The document is decoded in two steps. The first reads only the person-type
// discriminator under formality.content; the second decodes the selected variant.
// Leaf fields are Optional so that "absent" and "empty" stay distinguishable until
// the normalizer resolves defaults.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"siren/internal/registry"
)

// Raw is the registry company document as received.
type Raw []byte

// PersonKind discriminates the two company document variants.
type PersonKind string

const (
	KindPhysical PersonKind = "personnePhysique"
	KindMoral    PersonKind = "personneMorale"
)

// Optional is a JSON leaf that may be absent. Numbers are kept as their literal
// text; objects, arrays and booleans are treated as absent.
type Optional struct {
	Value string
	Set   bool
}

// Some returns a present value.
func Some(v string) Optional {
	return Optional{Value: v, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional) UnmarshalJSON(data []byte) error {
	*o = Optional{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = Some(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		if _, err := strconv.ParseFloat(string(data), 64); err == nil {
			*o = Some(string(data))
		}
	}
	return nil
}

// Or returns the value, or def when absent.
func (o Optional) Or(def string) string {
	if o.Set {
		return o.Value
	}
	return def
}

// PersonDescription is descriptionPersonne.
type PersonDescription struct {
	Nom     Optional   `json:"nom"`
	Prenoms []Optional `json:"prenoms"`
}

// FirstGivenName returns prenoms[0].
func (p *PersonDescription) FirstGivenName() Optional {
	if p == nil || len(p.Prenoms) == 0 {
		return Optional{}
	}
	return p.Prenoms[0]
}

// Surname returns nom.
func (p *PersonDescription) Surname() Optional {
	if p == nil {
		return Optional{}
	}
	return p.Nom
}

type Entrepreneur struct {
	DescriptionPersonne *PersonDescription `json:"descriptionPersonne"`
}

type Entreprise struct {
	Denomination Optional `json:"denomination"`
}

type Identite struct {
	Entrepreneur *Entrepreneur `json:"entrepreneur"`
	Entreprise   *Entreprise   `json:"entreprise"`
}

type Address struct {
	NumVoie    Optional `json:"numVoie"`
	TypeVoie   Optional `json:"typeVoie"`
	Voie       Optional `json:"voie"`
	Commune    Optional `json:"commune"`
	CodePostal Optional `json:"codePostal"`
	Pays       Optional `json:"pays"`
}

type CompanyAddress struct {
	Adresse *Address `json:"adresse"`
}

type EstablishmentDescription struct {
	NomCommercial Optional `json:"nomCommercial"`
}

type Establishment struct {
	DescriptionEtablissement *EstablishmentDescription `json:"descriptionEtablissement"`
}

// Beneficiary is one entry of beneficiairesEffectifs.
type Beneficiary struct {
	Beneficiaire *struct {
		DescriptionPersonne *PersonDescription `json:"descriptionPersonne"`
	} `json:"beneficiaire"`
}

// Description returns the beneficiary's descriptionPersonne, or nil.
func (b Beneficiary) Description() *PersonDescription {
	if b.Beneficiaire == nil {
		return nil
	}
	return b.Beneficiaire.DescriptionPersonne
}

// Beneficiaries is beneficiairesEffectifs. The registry sends a list when there are
// several owners and a bare object when there is one; both decode to a list.
type Beneficiaries []Beneficiary

// UnmarshalJSON implements json.Unmarshaler. Entries that are not objects keep
// their position as empty beneficiaries so that list order is preserved.
func (b *Beneficiaries) UnmarshalJSON(data []byte) error {
	*b = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make(Beneficiaries, len(items))
		for i, item := range items {
			list[i] = decodeBeneficiary(item)
		}
		*b = list
	case '{':
		*b = Beneficiaries{decodeBeneficiary(data)}
	}
	return nil
}

func decodeBeneficiary(data []byte) Beneficiary {
	var single Beneficiary
	if err := json.Unmarshal(data, &single); err != nil && !isTypeError(err) {
		return Beneficiary{}
	}
	return single
}

// Person holds the fields both variants share.
type Person struct {
	Identite               *Identite       `json:"identite"`
	AdresseEntreprise      *CompanyAddress `json:"adresseEntreprise"`
	EtablissementPrincipal *Establishment  `json:"etablissementPrincipal"`
}

// PhysicalPerson is an individual proprietor.
type PhysicalPerson struct {
	Person
}

// MoralPerson is a corporate entity.
type MoralPerson struct {
	Person
	BeneficiairesEffectifs Beneficiaries `json:"beneficiairesEffectifs"`
}

// Company is the decoded document: exactly one of Physical or Moral is set.
type Company struct {
	Kind     PersonKind
	Physical *PhysicalPerson
	Moral    *MoralPerson
}

// Common returns the fields shared by both variants.
func (c *Company) Common() *Person {
	if c.Physical != nil {
		return &c.Physical.Person
	}
	return &c.Moral.Person
}

type envelope struct {
	Formality *struct {
		Content map[string]json.RawMessage `json:"content"`
	} `json:"formality"`
}

// HasFormality reports whether the document carries a non-null formality section.
// Empty bodies and non-object bodies have none.
func HasFormality(raw Raw) bool {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return false
	}
	f, ok := top["formality"]
	return ok && !isNull(f)
}

// Decode picks the person variant and decodes it. It fails with
// registry.ErrMalformedPayload when neither variant is present; type mismatches
// below the discriminator leave the affected fields absent instead of failing.
func Decode(raw Raw) (*Company, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil && !isTypeError(err) {
		return nil, registry.NewError(registry.CategoryBadData, "normalize", "undecodable company document", err)
	}
	if env.Formality == nil {
		return nil, noDiscriminator()
	}
	content := env.Formality.Content

	if data, ok := content[string(KindPhysical)]; ok && isObject(data) {
		var p PhysicalPerson
		if err := decodeVariant(data, &p); err != nil {
			return nil, err
		}
		return &Company{Kind: KindPhysical, Physical: &p}, nil
	}
	if data, ok := content[string(KindMoral)]; ok && isObject(data) {
		var m MoralPerson
		if err := decodeVariant(data, &m); err != nil {
			return nil, err
		}
		return &Company{Kind: KindMoral, Moral: &m}, nil
	}
	return nil, noDiscriminator()
}

// ErrNoDiscriminator is wrapped by the malformed-payload error.
var ErrNoDiscriminator = errors.New("formality.content has neither personnePhysique nor personneMorale")

func noDiscriminator() error {
	return registry.NewError(registry.CategoryBadData, "normalize", "missing person type", ErrNoDiscriminator)
}

func decodeVariant(data json.RawMessage, v any) error {
	if err := json.Unmarshal(data, v); err != nil && !isTypeError(err) {
		return registry.NewError(registry.CategoryBadData, "normalize", fmt.Sprintf("undecodable %T", v), err)
	}
	return nil
}

func isTypeError(err error) bool {
	var te *json.UnmarshalTypeError
	return errors.As(err, &te)
}

// isObject reports whether a discriminator value selects its variant. Scalars,
// arrays and null select nothing.
func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
