// Package normalizer turns a registry company document into a flat contact.
package normalizer

import (
	"siren/internal/registry/models"
	"siren/internal/registry/payload"
	"siren/internal/registry/streettype"
)

// Normalize decodes raw and resolves every contact field. It fails only when the
// document has no person-type discriminator; any deeper missing field resolves to
// "" and missing owner names are reported as quality issues on the contact.
func Normalize(raw payload.Raw) (*models.Contact, error) {
	company, err := payload.Decode(raw)
	if err != nil {
		return nil, err
	}

	c := models.NewContact()
	resolveNames(c, owner(company))

	common := company.Common()
	c.CompanyName = companyName(common)

	addr := address(common)
	c.StreetAddress = streetAddress(addr)
	c.City = addr.Commune.Or("")
	c.PostalCode = addr.CodePostal.Or("")
	c.Country = addr.Pays.Or("")
	return c, nil
}

// owner selects the person whose names go on the contact: the entrepreneur for an
// individual, the first beneficial owner for a corporate entity.
func owner(company *payload.Company) *payload.PersonDescription {
	if company.Kind == payload.KindPhysical {
		id := company.Physical.Identite
		if id == nil || id.Entrepreneur == nil {
			return nil
		}
		return id.Entrepreneur.DescriptionPersonne
	}
	beneficiaries := company.Moral.BeneficiairesEffectifs
	if len(beneficiaries) == 0 {
		return nil
	}
	return beneficiaries[0].Description()
}

// resolveNames copies nom into FirstName and the first prénom into LastName.
func resolveNames(c *models.Contact, person *payload.PersonDescription) {
	if person == nil {
		c.Issues = append(c.Issues, models.IssueOwnerMissing)
		return
	}
	surname := person.Surname()
	given := person.FirstGivenName()
	if !surname.Set {
		c.Issues = append(c.Issues, models.IssueFirstNameMissing)
	}
	if !given.Set {
		c.Issues = append(c.Issues, models.IssueLastNameMissing)
	}
	c.FirstName = surname.Or("")
	c.LastName = given.Or("")
}

// companyName prefers the main establishment's commercial name, even when empty,
// over the legal denomination.
func companyName(p *payload.Person) string {
	if est := p.EtablissementPrincipal; est != nil && est.DescriptionEtablissement != nil {
		if name := est.DescriptionEtablissement.NomCommercial; name.Set {
			return name.Value
		}
	}
	if p.Identite != nil && p.Identite.Entreprise != nil {
		return p.Identite.Entreprise.Denomination.Or("")
	}
	return ""
}

func address(p *payload.Person) payload.Address {
	if p.AdresseEntreprise == nil || p.AdresseEntreprise.Adresse == nil {
		return payload.Address{}
	}
	return *p.AdresseEntreprise.Adresse
}

// streetAddress joins number, expanded street type and street name without
// separators. The result is empty only when the street name is absent; a missing
// number or type contributes nothing.
func streetAddress(a payload.Address) string {
	if !a.Voie.Set {
		return ""
	}
	streetType := ""
	if a.TypeVoie.Set {
		streetType = streettype.Expand(a.TypeVoie.Value)
	}
	return a.NumVoie.Or("") + streetType + a.Voie.Value
}
