package validators

import "go.mongodb.org/mongo-driver/bson"

var DoctorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"specialty",
			"available",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"qualification": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"specialty": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"experience_years": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  80,
			},

			"hospital_name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"hospital_location": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},

			"map_link": bson.M{
				"bsonType": "string",
			},

			"consultation_fee": bson.M{
				"bsonType": []string{"double", "int", "long", "decimal"},
				"minimum":  0,
			},

			"available": bson.M{
				"bsonType": "bool",
			},

			"registration_verified": bson.M{
				"bsonType": "bool",
			},

			"profile_image_url": bson.M{
				"bsonType": "string",
			},

			"slots": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"time", "booked"},
					"properties": bson.M{
						"time": bson.M{
							"bsonType": "date",
						},
						"booked": bson.M{
							"bsonType": "bool",
						},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
