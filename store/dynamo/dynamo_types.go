package dynamo

import (
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/store"
)

type dynamoUser struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	Id           string `dynamodbav:"Id"`
	Email        string `dynamodbav:"Email"`
	Provider     string `dynamodbav:"Provider"`
	ProviderId   string `dynamodbav:"ProviderId"`
	PasswordHash string `dynamodbav:"PasswordHash"`
	Created      int64  `dynamodbav:"Created"`
}

func userPK(provider string, providerId string) string {
	return "USER#" + provider + "#" + providerId
}

// Map domain User -> Dynamo
func userToDynamo(u models.User) dynamoUser {
	return dynamoUser{
		PK:           userPK(u.Provider, u.ProviderId),
		SK:           "PROFILE",
		Id:           u.Id,
		Email:        u.Email,
		Provider:     u.Provider,
		ProviderId:   u.ProviderId,
		PasswordHash: u.PasswordHash,
		Created:      u.Created,
	}
}

// Map Dynamo -> domain User
func userFromDynamo(du dynamoUser) models.User {
	return models.User{
		Id:           du.Id,
		Email:        du.Email,
		Provider:     du.Provider,
		ProviderId:   du.ProviderId,
		PasswordHash: du.PasswordHash,
		Created:      du.Created,
	}
}

// Documents of one user's collection share a partition so a whole
// collection is one Query.
type dynamoDocument struct {
	PK         string            `dynamodbav:"PK"`
	SK         string            `dynamodbav:"SK"`
	UserId     string            `dynamodbav:"UserId"`
	Collection string            `dynamodbav:"Collection"`
	UpdatedAt  int64             `dynamodbav:"UpdatedAt"`
	Data       string            `dynamodbav:"Data"`
	Index      map[string]string `dynamodbav:"Index,omitempty"`
}

func documentPK(userId string, collection store.Collection) string {
	return "DOC#" + userId + "#" + string(collection)
}

func documentToDynamo(userId string, collection store.Collection, doc store.Document) dynamoDocument {
	return dynamoDocument{
		PK:         documentPK(userId, collection),
		SK:         doc.Id,
		UserId:     userId,
		Collection: string(collection),
		UpdatedAt:  doc.UpdatedAt,
		Data:       string(doc.Data),
		Index:      doc.Index,
	}
}

func documentFromDynamo(dd dynamoDocument) store.Document {
	return store.Document{
		Id:        dd.SK,
		Data:      []byte(dd.Data),
		Index:     dd.Index,
		UpdatedAt: dd.UpdatedAt,
	}
}
