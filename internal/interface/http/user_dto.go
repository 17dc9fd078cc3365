package handlers

import (
	"time"

	"github.com/Aciila/go-ddd-boilerplate/internal/application"
	"github.com/Aciila/go-ddd-boilerplate/internal/domain/entity"
)

type createUserRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"required,username"`
}

type updateUserRequest struct {
	Email *string `json:"email" binding:"omitempty,email"`
	Name  *string `json:"name" binding:"omitempty,username"`
}

type userIDParam struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type listUsersQuery struct {
	Limit  *int `form:"limit" binding:"omitempty,gte=1,lte=100"`
	Offset *int `form:"offset" binding:"omitempty,gte=0"`
}

type searchUsersQuery struct {
	Q    string `form:"q" binding:"required,notblank"`
	Size *int   `form:"size" binding:"omitempty,gte=1,lte=50"`
}

// UserResponse is the public shape of a user. DeletedAt is never exposed.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type UserListResponse struct {
	Users  []UserResponse `json:"users"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func toUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUserListResponse(r application.ListResult) UserListResponse {
	users := make([]UserResponse, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, toUserResponse(u))
	}
	return UserListResponse{Users: users, Total: r.Total, Limit: r.Limit, Offset: r.Offset}
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
