// Package registrytest provides registry company documents and an in-process fake
// registry for tests.
package registrytest

// MoralSingleOwner is a corporate entity whose beneficiairesEffectifs is a bare
// object, as the registry sends it when there is one owner.
const MoralSingleOwner = `{
  "siren": "123456789",
  "formality": {
    "siren": "123456789",
    "formeJuridique": "5710",
    "content": {
      "personneMorale": {
        "identite": {
          "entreprise": {"siren": "123456789", "denomination": "ACME SAS"}
        },
        "adresseEntreprise": {
          "adresse": {
            "pays": "FR",
            "codePostal": "69000",
            "commune": "Lyon",
            "typeVoie": "RUE",
            "voie": "de Paris",
            "numVoie": "12"
          }
        },
        "etablissementPrincipal": {
          "descriptionEtablissement": {"nomCommercial": "ACME"}
        },
        "beneficiairesEffectifs": {
          "beneficiaire": {
            "descriptionPersonne": {"nom": "Durand", "prenoms": ["Alice"]}
          }
        }
      }
    }
  }
}`

// MoralTwoOwners lists two beneficiaries and has no commercial name.
const MoralTwoOwners = `{
  "siren": "552100554",
  "formality": {
    "content": {
      "personneMorale": {
        "identite": {
          "entreprise": {"denomination": "Dupont Industries"}
        },
        "adresseEntreprise": {
          "adresse": {
            "pays": "FRANCE",
            "codePostal": "75016",
            "commune": "Paris",
            "typeVoie": "AV",
            "voie": "Victor Hugo",
            "numVoie": "5"
          }
        },
        "etablissementPrincipal": {"descriptionEtablissement": {}},
        "beneficiairesEffectifs": [
          {"beneficiaire": {"descriptionPersonne": {"nom": "Martin", "prenoms": ["Paul", "Louis"]}}},
          {"beneficiaire": {"descriptionPersonne": {"nom": "Bernard", "prenoms": ["Claire"]}}}
        ]
      }
    }
  }
}`

// Physical is an individual proprietor. It also carries a beneficiary entry that
// must never be used for names.
const Physical = `{
  "siren": "800000001",
  "formality": {
    "content": {
      "personnePhysique": {
        "identite": {
          "entrepreneur": {
            "descriptionPersonne": {"nom": "Lefebvre", "prenoms": ["Jean", "Pierre"]}
          },
          "entreprise": {"denomination": "LEFEBVRE JEAN"}
        },
        "adresseEntreprise": {
          "adresse": {
            "pays": "FR",
            "codePostal": "44000",
            "commune": "Nantes",
            "typeVoie": "pl",
            "voie": "du Marché",
            "numVoie": "3"
          }
        },
        "etablissementPrincipal": {
          "descriptionEtablissement": {"nomCommercial": "Boulangerie Lefebvre"}
        },
        "beneficiairesEffectifs": {
          "beneficiaire": {"descriptionPersonne": {"nom": "Intrus", "prenoms": ["Mallory"]}}
        }
      }
    }
  }
}`

// MoralSparse has neither owners, commercial name nor street name.
const MoralSparse = `{
  "formality": {
    "content": {
      "personneMorale": {
        "identite": {"entreprise": {"denomination": "SPARSE SARL"}},
        "adresseEntreprise": {"adresse": {"numVoie": "7", "typeVoie": "BD", "commune": "Lille"}}
      }
    }
  }
}`

// NoPersonType has a formality section but no person discriminator.
const NoPersonType = `{"formality": {"content": {"natureCreation": {"dateCreation": "2020-01-01"}}}}`

// NoFormality is a successful answer without a formality section.
const NoFormality = `{"siren": "999999999", "updatedAt": "2024-01-01"}`
